package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"chatgate/internal/upstream"
	"chatgate/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Caller is the slice of the upstream client the registry needs. It is
// satisfied by a token-bound *upstream.Client.
type Caller interface {
	Request(ctx context.Context, path string, opts upstream.RequestOptions) upstream.Result
}

// ArgMetadata describes one declared tool argument.
type ArgMetadata struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// ToolMetadata describes one callable tool.
type ToolMetadata struct {
	Name        string
	Description string
	Args        []ArgMetadata
}

// Registry declares the callable tools and binds each to an upstream call.
// One registry is created per session, closed over that session's
// token-bound upstream client.
type Registry struct {
	client Caller
}

// NewRegistry creates a tool registry backed by the given upstream caller.
func NewRegistry(client Caller) *Registry {
	return &Registry{client: client}
}

// Tools returns the declared tool set.
func (r *Registry) Tools() []ToolMetadata {
	return []ToolMetadata{
		{
			Name:        "account_info",
			Description: "Get information about the ChatHub account the session is authenticated as.",
		},
		{
			Name:        "bots_list",
			Description: "List the bots registered under the account.",
		},
		{
			Name:        "dialogs_list",
			Description: "List the account's dialogs across all channels.",
			Args: []ArgMetadata{
				{Name: "limit", Type: "number", Description: "Maximum number of dialogs to return"},
				{Name: "offset", Type: "number", Description: "Number of dialogs to skip"},
				{Name: "cursor", Type: "string", Description: "Opaque paging cursor from a previous call"},
				{Name: "sort", Type: "string", Description: "Sort order by last activity", Enum: []string{"asc", "desc"}},
			},
		},
		{
			Name:        "send_message",
			Description: "Send a text message to a recipient on one of the supported channels.",
			Args: []ArgMetadata{
				{Name: "channel", Type: "string", Description: "Messaging channel to send through", Required: true, Enum: upstream.SupportedChannels()},
				{Name: "recipient", Type: "string", Description: "Channel-specific recipient identifier", Required: true},
				{Name: "text", Type: "string", Description: "Message text", Required: true},
			},
		},
	}
}

// ServerTools converts the declared tools into mcp-go server tools, ready to
// be registered on a per-session MCP server.
func (r *Registry) ServerTools() []mcpserver.ServerTool {
	metas := r.Tools()
	tools := make([]mcpserver.ServerTool, 0, len(metas))
	for _, meta := range metas {
		tools = append(tools, mcpserver.ServerTool{
			Tool: mcp.Tool{
				Name:        meta.Name,
				Description: meta.Description,
				InputSchema: toInputSchema(meta.Args),
			},
			Handler: r.createHandler(meta.Name),
		})
	}
	return tools
}

// createHandler wraps the execution of one tool in an MCP-compatible handler.
// Handler failures, panics included, are reported as textual error results so
// the calling agent sees the failure text instead of a dropped connection.
func (r *Registry) createHandler(toolName string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.Error("Tools", fmt.Errorf("%v", rec), "Tool %s panicked", toolName)
				result = mcp.NewToolResultError(fmt.Sprintf("tool %s failed: %v", toolName, rec))
				err = nil
			}
		}()

		args := make(map[string]interface{})
		if req.Params.Arguments != nil {
			if argsMap, ok := req.Params.Arguments.(map[string]interface{}); ok {
				args = argsMap
			}
		}

		res, execErr := r.execute(ctx, toolName, args)
		if execErr != nil {
			logging.Debug("Tools", "Tool %s rejected arguments: %v", toolName, execErr)
			return mcp.NewToolResultError(execErr.Error()), nil
		}

		payload, marshalErr := json.Marshal(res)
		if marshalErr != nil {
			logging.Error("Tools", marshalErr, "Failed to serialize result of %s", toolName)
			return mcp.NewToolResultError(fmt.Sprintf("tool %s failed: %v", toolName, marshalErr)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

// execute validates the arguments for one tool, builds the corresponding
// upstream call, and returns the proxy result. An error return means the
// arguments were unusable; upstream failures come back as a Result value.
func (r *Registry) execute(ctx context.Context, toolName string, args map[string]interface{}) (upstream.Result, error) {
	switch toolName {
	case "account_info":
		return r.client.Request(ctx, "/v1/account", upstream.RequestOptions{}), nil

	case "bots_list":
		return r.client.Request(ctx, "/v1/bots", upstream.RequestOptions{}), nil

	case "dialogs_list":
		query, err := dialogsQuery(args)
		if err != nil {
			return upstream.Result{}, err
		}
		return r.client.Request(ctx, "/v1/dialogs", upstream.RequestOptions{Query: query}), nil

	case "send_message":
		return r.sendMessage(ctx, args)

	default:
		return upstream.Result{}, fmt.Errorf("unknown tool: %s", toolName)
	}
}

// dialogsQuery coerces the optional paging and sort arguments into query
// parameters.
func dialogsQuery(args map[string]interface{}) (url.Values, error) {
	query := url.Values{}

	if limit, ok, err := intArg(args, "limit"); err != nil {
		return nil, err
	} else if ok {
		query.Set("limit", strconv.Itoa(limit))
	}

	if offset, ok, err := intArg(args, "offset"); err != nil {
		return nil, err
	} else if ok {
		query.Set("offset", strconv.Itoa(offset))
	}

	if cursor, ok, err := stringArg(args, "cursor"); err != nil {
		return nil, err
	} else if ok {
		query.Set("cursor", cursor)
	}

	if sort, ok, err := stringArg(args, "sort"); err != nil {
		return nil, err
	} else if ok {
		if sort != "asc" && sort != "desc" {
			return nil, fmt.Errorf("sort must be one of: asc, desc")
		}
		query.Set("sort", sort)
	}

	return query, nil
}

// sendMessage shapes and sends the channel-specific outbound payload. An
// unsupported channel tag is a normal result, not an error, so the caller
// sees the failure text.
func (r *Registry) sendMessage(ctx context.Context, args map[string]interface{}) (upstream.Result, error) {
	channel, err := requiredStringArg(args, "channel")
	if err != nil {
		return upstream.Result{}, err
	}
	recipient, err := requiredStringArg(args, "recipient")
	if err != nil {
		return upstream.Result{}, err
	}
	text, err := requiredStringArg(args, "text")
	if err != nil {
		return upstream.Result{}, err
	}

	build, ok := payloadBuilders[upstream.Channel(channel)]
	if !ok {
		return upstream.Result{
			Success: false,
			Error:   fmt.Sprintf("channel %q is not supported", channel),
		}, nil
	}

	// The prefix lookup cannot fail for a channel with a payload builder;
	// both maps are closed over the same fixed channel set.
	path, _ := upstream.ChannelPath(upstream.Channel(channel), "/messages")

	return r.client.Request(ctx, path, upstream.RequestOptions{
		Method: http.MethodPost,
		Body:   build(recipient, text),
	}), nil
}

// toInputSchema converts declared arguments to the MCP input schema format.
func toInputSchema(args []ArgMetadata) mcp.ToolInputSchema {
	properties := make(map[string]interface{})
	required := []string{}

	for _, arg := range args {
		propSchema := map[string]interface{}{
			"type":        arg.Type,
			"description": arg.Description,
		}
		if len(arg.Enum) > 0 {
			propSchema["enum"] = arg.Enum
		}
		properties[arg.Name] = propSchema

		if arg.Required {
			required = append(required, arg.Name)
		}
	}

	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}
