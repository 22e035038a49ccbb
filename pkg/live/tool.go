package live

// Tool represents a function the AI can invoke during the session, beyond
// the built-in capture and finalize operations.
type Tool struct {
	// Name is the unique identifier for the tool (e.g., "lookup_price").
	Name string `json:"name"`

	// Description explains what the tool does, helping the AI decide when to use it.
	Description string `json:"description"`

	// Parameters defines the JSON schema for the tool's arguments.
	// Example:
	//   map[string]any{
	//       "type": "object",
	//       "properties": map[string]any{
	//           "query": map[string]any{"type": "string"},
	//       },
	//       "required": []string{"query"},
	//   }
	Parameters map[string]any `json:"parameters"`

	// Handler is called when the AI invokes this tool. It receives the
	// parsed arguments and returns a result string or error. The result
	// is sent back to the AI to continue the conversation.
	Handler func(args map[string]any) (string, error) `json:"-"`
}
