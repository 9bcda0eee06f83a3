package invoice

import (
	"context"
	"errors"
	"fmt"
)

// NativeSharer opens an OS-level share sheet. It returns share_unsupported
// when the platform lacks one and canceled when the user backs out.
type NativeSharer interface {
	Share(ctx context.Context, artifact ExportArtifact) (ShareResult, error)
}

// NativeSharerFunc adapts a function to a NativeSharer.
type NativeSharerFunc func(ctx context.Context, artifact ExportArtifact) (ShareResult, error)

func (f NativeSharerFunc) Share(ctx context.Context, artifact ExportArtifact) (ShareResult, error) {
	if f == nil {
		return ShareResult{}, NewError(KindShareUnsupported, "native share unavailable", nil)
	}
	return f(ctx, artifact)
}

// ShareChannel delivers an artifact through one fallback channel.
type ShareChannel interface {
	Option() ShareOption
	Deliver(ctx context.Context, artifact ExportArtifact, target ShareTarget) (ShareResult, error)
}

// ShareCoordinator tries a native share first and falls back to a menu of
// channels the caller can pick from.
type ShareCoordinator struct {
	Native   NativeSharer
	Channels []ShareChannel
	Logger   Logger
}

// Options lists the configured fallback channels.
func (c ShareCoordinator) Options() []ShareOption {
	options := make([]ShareOption, 0, len(c.Channels))
	for _, channel := range c.Channels {
		if channel == nil {
			continue
		}
		options = append(options, channel.Option())
	}
	return options
}

// Share attempts a native share. When native sharing is unavailable or
// fails recoverably, the result carries the fallback menu instead.
func (c ShareCoordinator) Share(ctx context.Context, artifact ExportArtifact) (ShareResult, error) {
	if len(artifact.Data) == 0 {
		return ShareResult{}, NewError(KindValidation, "artifact is empty", nil)
	}
	logger := loggerOrNop(c.Logger)

	if c.Native != nil {
		result, err := c.Native.Share(ctx, artifact)
		switch KindFromError(err) {
		case "":
			result.Method = ShareMethodNative
			result.Success = !result.Cancelled
			return result, nil
		case KindCanceled:
			return ShareResult{Success: false, Cancelled: true, Method: ShareMethodNative}, nil
		case KindShareUnsupported, KindExternal:
			logger.Debugf("share coordinator: native share unavailable: %v", err)
		default:
			return ShareResult{}, err
		}
	}

	options := c.Options()
	if len(options) == 0 {
		return ShareResult{}, NewError(KindShareUnsupported, "no share channels available", nil)
	}
	return ShareResult{Method: ShareMethodMenu, Options: options}, nil
}

// CompleteShare delivers artifact through the channel named by optionID.
func (c ShareCoordinator) CompleteShare(ctx context.Context, optionID string, artifact ExportArtifact, target ShareTarget) (ShareResult, error) {
	channel := c.channel(optionID)
	if channel == nil {
		return ShareResult{}, NewError(KindValidation, fmt.Sprintf("unknown share option %q", optionID), nil)
	}
	if len(artifact.Data) == 0 {
		return ShareResult{}, NewError(KindValidation, "artifact is empty", nil)
	}

	result, err := channel.Deliver(ctx, artifact, target)
	if err != nil {
		var invErr *Error
		if errors.As(err, &invErr) {
			return ShareResult{}, err
		}
		return ShareResult{}, NewError(KindExternal, fmt.Sprintf("share via %s failed", optionID), err)
	}
	result.Method = ShareMethod(optionID)
	if !result.Cancelled {
		result.Success = true
	}
	return result, nil
}

func (c ShareCoordinator) channel(optionID string) ShareChannel {
	for _, channel := range c.Channels {
		if channel != nil && channel.Option().ID == optionID {
			return channel
		}
	}
	return nil
}
