package out

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os/exec"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pluginrpc "cardadapter/internal/modules/plugin/adapter/out/rpc"
	"cardadapter/internal/modules/plugin/domain"
	pluginout "cardadapter/internal/modules/plugin/port/out"
	"cardadapter/internal/platform/logging"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

type GRPCHost struct {
	logger hclog.Logger
}

func NewGRPCHost(logger hclog.Logger) pluginout.Host {
	return &GRPCHost{logger: logging.OrDiscard(logger).Named("plugin.host")}
}

// Launch starts the plugin process and keeps it running until stop is called.
func (h *GRPCHost) Launch(_ context.Context, inst domain.Installation) (domain.Plugin, func(), error) {
	client, stop, err := h.connect(inst)
	if err != nil {
		return nil, nil, err
	}
	h.logger.Debug("plugin process started", "package", inst.Name, "binary", inst.Binary)
	return domain.Restrict(&grpcPlugin{client: client, name: inst.Name}, inst.Roles), stop, nil
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, inst domain.Installation) error {
	client, stop, err := h.connect(inst)
	if err != nil {
		return err
	}
	defer stop()

	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	desc, err := client.Describe(callCtx)
	if err != nil {
		return fmt.Errorf("describe plugin: %w", err)
	}
	if desc.Name != inst.Name {
		return fmt.Errorf("plugin reports name %q, installed as %q", desc.Name, inst.Name)
	}
	return nil
}

func (h *GRPCHost) connect(inst domain.Installation) (pluginrpc.CardPluginClient, func(), error) {
	var secure *plugin.SecureConfig
	if inst.SHA256 != "" {
		sum, err := hex.DecodeString(inst.SHA256)
		if err != nil {
			return nil, nil, fmt.Errorf("decode installation checksum: %w", err)
		}
		secure = &plugin.SecureConfig{Checksum: sum, Hash: sha256.New()}
	}
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  pluginrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          pluginrpc.PluginMap(nil),
		Cmd:              exec.Command(inst.Binary),
		SecureConfig:     secure,
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           h.logger.Named(inst.Name),
	})
	closeFn := func() { client.Kill() }

	rpcClient, err := client.Client()
	if err != nil {
		closeFn()
		if errors.Is(err, plugin.ErrChecksumsDoNotMatch) {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, inst.Name)
		}
		return nil, nil, fmt.Errorf("start plugin client: %w", err)
	}
	raw, err := rpcClient.Dispense(pluginrpc.PluginMapKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("dispense plugin: %w", err)
	}
	typed, ok := raw.(pluginrpc.CardPluginClient)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("plugin rpc client type mismatch")
	}
	return typed, closeFn, nil
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// grpcPlugin is the host-side view of a running plugin process.
type grpcPlugin struct {
	client pluginrpc.CardPluginClient
	name   string
}

func (p *grpcPlugin) SelectTemplate(ctx context.Context, payload map[string]any) (any, error) {
	rawPayload, err := pluginrpc.EncodeValue(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	resp, err := p.client.SelectTemplate(ctx, &pluginrpc.SelectTemplateRequest{Payload: rawPayload})
	if err != nil {
		return nil, p.callError(domain.RoleSelector, err)
	}
	template, err := pluginrpc.DecodeValue(resp.Template)
	if err != nil {
		return nil, fmt.Errorf("decode template from %s: %w", p.name, err)
	}
	return template, nil
}

func (p *grpcPlugin) PreProcess(ctx context.Context, payload map[string]any, template any) (map[string]any, error) {
	rawPayload, err := pluginrpc.EncodeValue(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	rawTemplate, err := pluginrpc.EncodeValue(template)
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	resp, err := p.client.PreProcess(ctx, &pluginrpc.PreProcessRequest{Payload: rawPayload, Template: rawTemplate})
	if err != nil {
		return nil, p.callError(domain.RolePreProcessor, err)
	}
	next, err := pluginrpc.DecodeObject(resp.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload from %s: %w", p.name, err)
	}
	return next, nil
}

func (p *grpcPlugin) PostProcess(ctx context.Context, payload map[string]any, template any, card any) (any, error) {
	rawPayload, err := pluginrpc.EncodeValue(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	rawTemplate, err := pluginrpc.EncodeValue(template)
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	rawCard, err := pluginrpc.EncodeValue(card)
	if err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	resp, err := p.client.PostProcess(ctx, &pluginrpc.PostProcessRequest{Payload: rawPayload, Template: rawTemplate, Card: rawCard})
	if err != nil {
		return nil, p.callError(domain.RolePostProcessor, err)
	}
	next, err := pluginrpc.DecodeValue(resp.Card)
	if err != nil {
		return nil, fmt.Errorf("decode card from %s: %w", p.name, err)
	}
	return next, nil
}

// callError keeps the plugin's own message so callers can surface it as-is.
func (p *grpcPlugin) callError(role domain.Role, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unimplemented:
		return fmt.Errorf("%w: %s does not implement %s", domain.ErrRoleUnsupported, p.name, role)
	case codes.DeadlineExceeded:
		return fmt.Errorf("%s %s: %w", p.name, role, context.DeadlineExceeded)
	case codes.Canceled:
		return fmt.Errorf("%s %s: %w", p.name, role, context.Canceled)
	default:
		return errors.New(st.Message())
	}
}
