package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeShapes(t *testing.T) {
	type tokenData struct {
		SessionToken string `json:"session_token"`
	}
	type signupBody struct {
		Base
		SessionToken string `json:"session_token"`
	}

	tests := []struct {
		name string
		body interface{}
		want string
	}{
		{"payload", Success("done", tokenData{SessionToken: "t"}), `{"status":"success","message":"done","data":{"session_token":"t"}}`},
		{"null payload", Success[any]("Logout successful", nil), `{"status":"success","message":"Logout successful","data":null}`},
		{"embedded extra field", signupBody{Base: OK("sent"), SessionToken: "t"}, `{"status":"success","message":"sent","session_token":"t"}`},
		{"error", Error("Invalid credentials.", "invalid_credentials"), `{"status":"error","message":"Invalid credentials.","error_type":"invalid_credentials"}`},
		{"validation", ValidationError("bad", map[string]string{"email": "required"}), `{"status":"error","message":"bad","error_type":"validation_error","errors":{"email":"required"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.body)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}
