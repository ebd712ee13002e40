package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
)

// ArkChatModel wraps an eino Ark chat model so its SDK errors carry a
// StatusError the gateway can classify.
type ArkChatModel struct {
	inner model.BaseChatModel
}

// NewArkChatModel wraps inner, normally the model built by eino-ext's ark package.
func NewArkChatModel(inner model.BaseChatModel) (*ArkChatModel, error) {
	if inner == nil {
		return nil, errors.New("ark chat model is required")
	}
	return &ArkChatModel{inner: inner}, nil
}

// Generate implements model.BaseChatModel.
func (m *ArkChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	msg, err := m.inner.Generate(ctx, input, opts...)
	if err != nil {
		return nil, wrapArkError(err)
	}
	return msg, nil
}

// Stream implements model.BaseChatModel.
func (m *ArkChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, err := m.inner.Stream(ctx, input, opts...)
	if err != nil {
		return nil, wrapArkError(err)
	}
	return sr, nil
}

func wrapArkError(err error) error {
	var apiErr *arkmodel.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("ark chat completion: %w", &StatusError{Code: apiErr.HTTPStatusCode, Message: apiErr.Message})
	}
	var reqErr *arkmodel.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("ark chat completion: %w", &StatusError{Code: reqErr.HTTPStatusCode, Message: reqErr.Error()})
	}
	return fmt.Errorf("ark chat completion: %w", err)
}
