package handlers

import (
	"context"

	"github.com/conneroisu/poolserve/internal/protocol"
)

// apiBody is the fixed payload of the API stub.
const apiBody = `{"errno":0,"msg":"success","data":null}`

// APIHandler answers every /api request with a fixed JSON success body.
type APIHandler struct{}

// Handle returns the stub payload.
func (APIHandler) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	return protocol.NewResponse(protocol.StatusOK, map[string]string{
		"Content-Type": "application/json",
	}, []byte(apiBody))
}
