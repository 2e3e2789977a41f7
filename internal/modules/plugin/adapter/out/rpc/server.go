package rpc

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Handlers are the typed entry points a plugin binary implements. Nil fields
// answer with codes.Unimplemented.
type Handlers struct {
	SelectTemplate func(ctx context.Context, payload map[string]any) (any, error)
	PreProcess     func(ctx context.Context, payload map[string]any, template any) (map[string]any, error)
	PostProcess    func(ctx context.Context, payload map[string]any, template any, card any) (any, error)
}

// NewServer adapts Handlers to the wire contract, doing the JSON plumbing.
func NewServer(desc Descriptor, handlers Handlers) CardPluginServer {
	return &handlerServer{desc: desc, handlers: handlers}
}

// Serve runs a plugin process. It blocks until the host disconnects.
func Serve(desc Descriptor, handlers Handlers) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap(NewServer(desc, handlers)),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}

type handlerServer struct {
	desc     Descriptor
	handlers Handlers
}

func (s *handlerServer) Describe(context.Context, *Empty) (*Descriptor, error) {
	desc := s.desc
	return &desc, nil
}

func (s *handlerServer) SelectTemplate(ctx context.Context, in *SelectTemplateRequest) (*SelectTemplateResponse, error) {
	if s.handlers.SelectTemplate == nil {
		return nil, status.Error(codes.Unimplemented, "selector role not implemented")
	}
	payload, err := decodeObject(in.Payload, "payload")
	if err != nil {
		return nil, err
	}
	template, err := s.handlers.SelectTemplate(ctx, payload)
	if err != nil {
		return nil, status.Error(codes.Unknown, err.Error())
	}
	raw, err := encode(template, "template")
	if err != nil {
		return nil, err
	}
	return &SelectTemplateResponse{Template: raw}, nil
}

func (s *handlerServer) PreProcess(ctx context.Context, in *PreProcessRequest) (*PreProcessResponse, error) {
	if s.handlers.PreProcess == nil {
		return nil, status.Error(codes.Unimplemented, "preprocessor role not implemented")
	}
	payload, err := decodeObject(in.Payload, "payload")
	if err != nil {
		return nil, err
	}
	template, err := decodeValue(in.Template, "template")
	if err != nil {
		return nil, err
	}
	next, err := s.handlers.PreProcess(ctx, payload, template)
	if err != nil {
		return nil, status.Error(codes.Unknown, err.Error())
	}
	raw, err := encode(next, "payload")
	if err != nil {
		return nil, err
	}
	return &PreProcessResponse{Payload: raw}, nil
}

func (s *handlerServer) PostProcess(ctx context.Context, in *PostProcessRequest) (*PostProcessResponse, error) {
	if s.handlers.PostProcess == nil {
		return nil, status.Error(codes.Unimplemented, "postprocessor role not implemented")
	}
	payload, err := decodeObject(in.Payload, "payload")
	if err != nil {
		return nil, err
	}
	template, err := decodeValue(in.Template, "template")
	if err != nil {
		return nil, err
	}
	card, err := decodeValue(in.Card, "card")
	if err != nil {
		return nil, err
	}
	next, err := s.handlers.PostProcess(ctx, payload, template, card)
	if err != nil {
		return nil, status.Error(codes.Unknown, err.Error())
	}
	raw, err := encode(next, "card")
	if err != nil {
		return nil, err
	}
	return &PostProcessResponse{Card: raw}, nil
}

// EncodeValue marshals a document for the wire. Exported for the host side.
func EncodeValue(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

// DecodeValue unmarshals a wire document; empty input yields nil.
func DecodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeObject unmarshals a wire document that must be an object (or null).
func DecodeObject(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeObject(raw json.RawMessage, field string) (map[string]any, error) {
	v, err := DecodeObject(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("decode %s: %v", field, err))
	}
	return v, nil
}

func decodeValue(raw json.RawMessage, field string) (any, error) {
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("decode %s: %v", field, err))
	}
	return v, nil
}

func encode(v any, field string) (json.RawMessage, error) {
	raw, err := EncodeValue(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode %s: %v", field, err))
	}
	return raw, nil
}
