// Package sdk provides a typed Go client for the Verdict MCP server.
//
// The client wraps mcp-go/client.CallTool with one method per MCP tool,
// connection management, and automatic retry via fortify.
//
// Usage:
//
//	transport, _ := client.NewStdioTransport("verdict", "mcp")
//	c := sdk.NewClient(transport)
//	defer c.Close()
//
//	info, _ := c.Initialize(ctx)
//	run, _ := c.Decide(ctx, sdk.DecideRequest{Question: "Should we raise prices?"})
//	fmt.Println(run.Card.Headline)
package sdk
