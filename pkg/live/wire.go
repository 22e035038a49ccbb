package live

import "encoding/base64"

// Outbound messages use the peer's snake_case framing; inbound messages
// arrive camelCase. Both follow the bidirectional generative session
// protocol: setup / realtime_input / tool_response going out,
// setupComplete / serverContent / toolCall coming in.

// setupMessage builds the initial session configuration frame.
func setupMessage(cfg Config, toolDecls []map[string]any) map[string]any {
	setup := map[string]any{
		"model": cfg.Model,
		"generation_config": map[string]any{
			"response_modalities": []string{"AUDIO"},
			"speech_config": map[string]any{
				"voice_config": map[string]any{
					"prebuilt_voice_config": map[string]any{
						"voice_name": cfg.Voice,
					},
				},
			},
		},
		"system_instruction": map[string]any{
			"parts": []map[string]any{
				{"text": cfg.SystemPrompt},
			},
		},
	}
	if len(toolDecls) > 0 {
		setup["tools"] = []map[string]any{
			{"function_declarations": toolDecls},
		}
	}
	return map[string]any{"setup": setup}
}

// mediaMessage builds a realtime media frame carrying one chunk.
func mediaMessage(data []byte, mimeType string) map[string]any {
	return map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{
					"data":      base64.StdEncoding.EncodeToString(data),
					"mime_type": mimeType,
				},
			},
		},
	}
}

// toolResponseMessage builds a function response frame.
func toolResponseMessage(callID, name, result string) map[string]any {
	return map[string]any{
		"tool_response": map[string]any{
			"function_responses": []map[string]any{
				{
					"id":       callID,
					"name":     name,
					"response": map[string]any{"result": result},
				},
			},
		},
	}
}

// serverMessage mirrors the inbound frame shape. A single frame may carry
// several of these fields at once.
type serverMessage struct {
	SetupComplete        *struct{}      `json:"setupComplete"`
	ServerContent        *serverContent `json:"serverContent"`
	ToolCall             *wireToolCall  `json:"toolCall"`
	ToolCallCancellation *struct {
		IDs []string `json:"ids"`
	} `json:"toolCallCancellation"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type serverContent struct {
	TurnComplete bool `json:"turnComplete"`
	Interrupted  bool `json:"interrupted"`
	ModelTurn    *struct {
		Parts []wirePart `json:"parts"`
	} `json:"modelTurn"`
	InputTranscription  *wireTranscription `json:"inputTranscription"`
	OutputTranscription *wireTranscription `json:"outputTranscription"`
}

type wirePart struct {
	Text       string `json:"text"`
	InlineData *struct {
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
	} `json:"inlineData"`
}

type wireTranscription struct {
	Text     string `json:"text"`
	Finished bool   `json:"finished"`
}

type wireToolCall struct {
	FunctionCalls []struct {
		ID   string         `json:"id"`
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	} `json:"functionCalls"`
}
