package rpc

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey         = "cardadapter"
	serviceName          = "cardadapter.plugin.v1.CardPlugin"
	jsonCodecName        = "json"
	methodDescribe       = "/" + serviceName + "/Describe"
	methodSelectTemplate = "/" + serviceName + "/SelectTemplate"
	methodPreProcess     = "/" + serviceName + "/PreProcess"
	methodPostProcess    = "/" + serviceName + "/PostProcess"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "CARDADAPTER_PLUGIN",
	MagicCookieValue: "cardadapter",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Descriptor struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Roles   []string `json:"roles"`
}

type SelectTemplateRequest struct {
	Payload json.RawMessage `json:"payload"`
}

type SelectTemplateResponse struct {
	Template json.RawMessage `json:"template"`
}

type PreProcessRequest struct {
	Payload  json.RawMessage `json:"payload"`
	Template json.RawMessage `json:"template"`
}

type PreProcessResponse struct {
	Payload json.RawMessage `json:"payload"`
}

type PostProcessRequest struct {
	Payload  json.RawMessage `json:"payload"`
	Template json.RawMessage `json:"template"`
	Card     json.RawMessage `json:"card"`
}

type PostProcessResponse struct {
	Card json.RawMessage `json:"card"`
}

type CardPluginServer interface {
	Describe(ctx context.Context, in *Empty) (*Descriptor, error)
	SelectTemplate(ctx context.Context, in *SelectTemplateRequest) (*SelectTemplateResponse, error)
	PreProcess(ctx context.Context, in *PreProcessRequest) (*PreProcessResponse, error)
	PostProcess(ctx context.Context, in *PostProcessRequest) (*PostProcessResponse, error)
}

type CardPluginClient interface {
	Describe(ctx context.Context) (*Descriptor, error)
	SelectTemplate(ctx context.Context, in *SelectTemplateRequest) (*SelectTemplateResponse, error)
	PreProcess(ctx context.Context, in *PreProcessRequest) (*PreProcessResponse, error)
	PostProcess(ctx context.Context, in *PostProcessRequest) (*PostProcessResponse, error)
}

type cardPluginClient struct {
	conn *grpc.ClientConn
}

func NewCardPluginClient(conn *grpc.ClientConn) CardPluginClient {
	return &cardPluginClient{conn: conn}
}

func (c *cardPluginClient) Describe(ctx context.Context) (*Descriptor, error) {
	out := &Descriptor{}
	if err := c.conn.Invoke(ctx, methodDescribe, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cardPluginClient) SelectTemplate(ctx context.Context, in *SelectTemplateRequest) (*SelectTemplateResponse, error) {
	out := &SelectTemplateResponse{}
	if err := c.conn.Invoke(ctx, methodSelectTemplate, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cardPluginClient) PreProcess(ctx context.Context, in *PreProcessRequest) (*PreProcessResponse, error) {
	out := &PreProcessResponse{}
	if err := c.conn.Invoke(ctx, methodPreProcess, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *cardPluginClient) PostProcess(ctx context.Context, in *PostProcessRequest) (*PostProcessResponse, error) {
	out := &PostProcessResponse{}
	if err := c.conn.Invoke(ctx, methodPostProcess, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// unaryMethod builds a grpc.MethodDesc for a request type Req.
func unaryMethod[Req any](name, fullMethod string, call func(ctx context.Context, in *Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				typed, ok := req.(*Req)
				if !ok {
					return nil, fmt.Errorf("invalid request type")
				}
				return call(ctx, typed)
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func RegisterCardPluginServer(server grpc.ServiceRegistrar, impl CardPluginServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*CardPluginServer)(nil),
		Methods: []grpc.MethodDesc{
			unaryMethod("Describe", methodDescribe, func(ctx context.Context, in *Empty) (any, error) {
				return impl.Describe(ctx, in)
			}),
			unaryMethod("SelectTemplate", methodSelectTemplate, func(ctx context.Context, in *SelectTemplateRequest) (any, error) {
				return impl.SelectTemplate(ctx, in)
			}),
			unaryMethod("PreProcess", methodPreProcess, func(ctx context.Context, in *PreProcessRequest) (any, error) {
				return impl.PreProcess(ctx, in)
			}),
			unaryMethod("PostProcess", methodPostProcess, func(ctx context.Context, in *PostProcessRequest) (any, error) {
				return impl.PostProcess(ctx, in)
			}),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/card-plugin-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl CardPluginServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterCardPluginServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewCardPluginClient(conn), nil
}

func PluginMap(impl CardPluginServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
