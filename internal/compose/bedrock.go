package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockGenerator implements Generator on the Bedrock Converse API, for
// deployments that keep inference inside AWS.
type BedrockGenerator struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockGenerator wraps a Bedrock runtime client.
func NewBedrockGenerator(api bedrockConverseAPI, modelID string) (*BedrockGenerator, error) {
	if api == nil {
		return nil, errors.New("compose: bedrock client cannot be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("compose: bedrock model id is required")
	}
	return &BedrockGenerator{api: api, modelID: modelID}, nil
}

// Generate sends one Converse request with the history folded into messages.
func (g *BedrockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	systemBlocks := make([]brtypes.SystemContentBlock, 0, len(req.System))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: block})
	}

	messages := make([]brtypes.Message, 0, len(req.History)+1)
	for _, turn := range req.History {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		role := brtypes.ConversationRoleUser
		if turn.Role == ChatRoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		messages = append(messages, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: content}},
		})
	}
	messages = append(messages, brtypes.Message{
		Role:    brtypes.ConversationRoleUser,
		Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: req.UserText}},
	})

	out, err := g.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(g.modelID),
		System:   systemBlocks,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("compose: bedrock converse failed: %w", err)
	}

	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("compose: bedrock returned unexpected output type")
	}
	var b strings.Builder
	for _, block := range msgOut.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	result := strings.TrimSpace(b.String())
	if result == "" {
		return "", errors.New("compose: bedrock returned empty content")
	}
	return result, nil
}
