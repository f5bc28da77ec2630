package voice

import (
	"encoding/json"
	"time"
)

// Control-channel event types, inbound and outbound.
const (
	eventSessionUpdate     = "session.update"
	eventSessionCreated    = "session.created"
	eventSpeechStarted     = "input_audio_buffer.speech_started"
	eventSpeechStopped     = "input_audio_buffer.speech_stopped"
	eventTranscriptionDone = "conversation.item.input_audio_transcription.completed"
	eventTranscriptDelta   = "response.audio_transcript.delta"
	eventTranscriptDone    = "response.audio_transcript.done"
	eventAudioDelta        = "response.audio.delta"
	eventFunctionCallDone  = "response.function_call_arguments.done"
	eventBufferAppend      = "input_audio_buffer.append"
	eventBufferClear       = "input_audio_buffer.clear"
	eventItemCreate        = "conversation.item.create"
	eventResponseCreate    = "response.create"
	eventError             = "error"
)

// serverEvent is the decoded superset of every inbound control message.
type serverEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Name       string `json:"name,omitempty"`
	CallID     string `json:"call_id,omitempty"`
	Arguments  string `json:"arguments,omitempty"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SessionSettings is everything session.update configures on the realtime
// side: persona, audio formats, transcription, and turn detection.
type SessionSettings struct {
	Instructions    string
	Voice           string
	VADThreshold    float64
	VADPrefix       time.Duration
	VADSilence      time.Duration
	Tools           []map[string]any
	Temperature     float64
	MaxOutputTokens int
}

func sessionUpdateMessage(s SessionSettings) []byte {
	msg := map[string]any{
		"type": eventSessionUpdate,
		"session": map[string]any{
			"instructions":        s.Instructions,
			"voice":               s.Voice,
			"input_audio_format":  "pcm16",
			"output_audio_format": "pcm16",
			"input_audio_transcription": map[string]any{
				"model": "whisper-1",
			},
			"turn_detection": map[string]any{
				"type":                "server_vad",
				"threshold":           s.VADThreshold,
				"prefix_padding_ms":   s.VADPrefix.Milliseconds(),
				"silence_duration_ms": s.VADSilence.Milliseconds(),
			},
			"tools":                      s.Tools,
			"tool_choice":                "auto",
			"temperature":                s.Temperature,
			"max_response_output_tokens": s.MaxOutputTokens,
		},
	}
	return mustMarshal(msg)
}

func bufferAppendMessage(audio string) []byte {
	return mustMarshal(map[string]any{
		"type":  eventBufferAppend,
		"audio": audio,
	})
}

func bufferClearMessage() []byte {
	return mustMarshal(map[string]any{"type": eventBufferClear})
}

func functionCallOutputMessage(callID, output string) []byte {
	return mustMarshal(map[string]any{
		"type": eventItemCreate,
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	})
}

func responseCreateMessage(instructions string) []byte {
	response := map[string]any{
		"modalities": []string{"text", "audio"},
	}
	if instructions != "" {
		response["instructions"] = instructions
	}
	return mustMarshal(map[string]any{
		"type":     eventResponseCreate,
		"response": response,
	})
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic("voice: unmarshalable control message: " + err.Error())
	}
	return data
}
