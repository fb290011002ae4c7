package hcs12

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashgraph-online/hashlinks-sdk-go/pkg/mirror"
	"github.com/hashgraph-online/hashlinks-sdk-go/pkg/shared"
	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/rs/zerolog"
)

// Client submits HCS-12 messages to the ledger and reads registry topics back through the
// mirror node. It implements MessageSubmitter.
type Client struct {
	hederaClient *hedera.Client
	mirrorClient *mirror.Client
	operatorID   hedera.AccountID
	operatorKey  hedera.PrivateKey
	network      string
	logger       zerolog.Logger
}

// NewClient creates a new Client.
func NewClient(config ClientConfig) (*Client, error) {
	network, err := shared.NormalizeNetwork(config.Network)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(config.OperatorAccountID) == "" {
		return nil, fmt.Errorf("operator account ID is required")
	}
	if strings.TrimSpace(config.OperatorPrivateKey) == "" {
		return nil, fmt.Errorf("operator private key is required")
	}

	operatorID, err := hedera.AccountIDFromString(strings.TrimSpace(config.OperatorAccountID))
	if err != nil {
		return nil, fmt.Errorf("invalid operator account ID: %w", err)
	}
	operatorKey, err := shared.ParsePrivateKey(config.OperatorPrivateKey)
	if err != nil {
		return nil, err
	}

	hederaClient, err := shared.NewHederaClient(network)
	if err != nil {
		return nil, err
	}
	hederaClient.SetOperator(operatorID, operatorKey)

	mirrorClient, err := mirror.NewClient(mirror.Config{
		Network: network,
		BaseURL: config.MirrorBaseURL,
		APIKey:  config.MirrorAPIKey,
		Logger:  config.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		hederaClient: hederaClient,
		mirrorClient: mirrorClient,
		operatorID:   operatorID,
		operatorKey:  operatorKey,
		network:      network,
		logger:       resolveLogger(config.Logger).With().Str("component", "hcs12.client").Logger(),
	}, nil
}

// MirrorClient returns the configured mirror node client.
func (c *Client) MirrorClient() *mirror.Client {
	return c.mirrorClient
}

// CreateRegistryTopic creates a topic whose memo declares the registry type.
func (c *Client) CreateRegistryTopic(ctx context.Context, options CreateRegistryTopicOptions) (CreateTopicResult, error) {
	_ = ctx

	adminKey, err := c.resolvePublicKey(options.AdminKey, options.UseOperatorAsAdmin)
	if err != nil {
		return CreateTopicResult{}, fmt.Errorf("invalid admin key: %w", err)
	}
	submitKey, err := c.resolvePublicKey(options.SubmitKey, options.UseOperatorAsSubmit)
	if err != nil {
		return CreateTopicResult{}, fmt.Errorf("invalid submit key: %w", err)
	}
	transaction, err := BuildCreateRegistryTopicTx(CreateRegistryTopicTxParams{
		RegistryType: options.RegistryType,
		TTL:          options.TTL,
		AdminKey:     adminKey,
		SubmitKey:    submitKey,
		MemoOverride: options.MemoOverride,
	})
	if err != nil {
		return CreateTopicResult{}, err
	}
	if strings.TrimSpace(options.TransactionMemo) != "" {
		transaction.SetTransactionMemo(strings.TrimSpace(options.TransactionMemo))
	}

	response, err := transaction.Execute(c.hederaClient)
	if err != nil {
		return CreateTopicResult{}, fmt.Errorf("failed to execute topic create transaction: %w", err)
	}
	receipt, err := response.GetReceipt(c.hederaClient)
	if err != nil {
		return CreateTopicResult{}, fmt.Errorf("failed to get topic create receipt: %w", err)
	}
	if receipt.TopicID == nil {
		return CreateTopicResult{}, fmt.Errorf("topic create receipt missing topic ID")
	}
	c.logger.Info().
		Str("topic_id", receipt.TopicID.String()).
		Str("registry", string(options.RegistryType)).
		Msg("created registry topic")
	return CreateTopicResult{
		Success:       true,
		TopicID:       receipt.TopicID.String(),
		TransactionID: response.TransactionID.String(),
	}, nil
}

// SubmitMessage serializes payload to JSON and appends it to topicID.
func (c *Client) SubmitMessage(
	ctx context.Context,
	topicID string,
	payload any,
	transactionMemo string,
) (SubmitMessageResult, error) {
	_ = ctx

	transaction, err := BuildSubmitMessageTx(topicID, payload, transactionMemo)
	if err != nil {
		return SubmitMessageResult{}, err
	}
	response, err := transaction.Execute(c.hederaClient)
	if err != nil {
		return SubmitMessageResult{}, fmt.Errorf("failed to execute message submit transaction: %w", err)
	}
	receipt, err := response.GetReceipt(c.hederaClient)
	if err != nil {
		return SubmitMessageResult{}, fmt.Errorf("failed to get message submit receipt: %w", err)
	}
	c.logger.Debug().
		Str("topic_id", topicID).
		Uint64("sequence_number", receipt.TopicSequenceNumber).
		Msg("submitted message")
	return SubmitMessageResult{
		Success:        true,
		TransactionID:  response.TransactionID.String(),
		SequenceNumber: int64(receipt.TopicSequenceNumber),
	}, nil
}

func (c *Client) RegisterAction(
	ctx context.Context,
	topicID string,
	registration ActionRegistration,
	transactionMemo string,
) (SubmitMessageResult, error) {
	defaultEnvelope(&registration.P, &registration.Op, OperationRegister)
	if err := registration.Validate(); err != nil {
		return SubmitMessageResult{}, err
	}
	return c.submitOperation(ctx, topicID, registration, transactionMemo, OperationRegister, RegistryTypeAction)
}

func (c *Client) RegisterBlock(
	ctx context.Context,
	topicID string,
	registration BlockRegistration,
	transactionMemo string,
) (SubmitMessageResult, error) {
	defaultEnvelope(&registration.P, &registration.Op, OperationRegister)
	if err := validateRegistration(registration); err != nil {
		return SubmitMessageResult{}, err
	}
	return c.submitOperation(ctx, topicID, registration, transactionMemo, OperationRegister, RegistryTypeBlock)
}

// RegisterAssembly writes the register message, normally as the first message of a new
// assembly topic.
func (c *Client) RegisterAssembly(
	ctx context.Context,
	topicID string,
	registration AssemblyRegistration,
	transactionMemo string,
) (SubmitMessageResult, error) {
	defaultEnvelope(&registration.P, &registration.Op, OperationRegister)
	if err := validateRegistration(registration); err != nil {
		return SubmitMessageResult{}, err
	}
	return c.submitOperation(ctx, topicID, registration, transactionMemo, OperationRegister, RegistryTypeAssembly)
}

func (c *Client) RegisterHashLink(
	ctx context.Context,
	topicID string,
	registration HashLinksRegistration,
	transactionMemo string,
) (SubmitMessageResult, error) {
	defaultEnvelope(&registration.P, &registration.Op, OperationRegister)
	if err := registration.Validate(); err != nil {
		return SubmitMessageResult{}, err
	}
	return c.submitOperation(ctx, topicID, registration, transactionMemo, OperationRegister, RegistryTypeHashlinks)
}

func (c *Client) AddActionToAssembly(
	ctx context.Context,
	assemblyTopicID string,
	operation AssemblyAddAction,
	transactionMemo string,
) (SubmitMessageResult, error) {
	defaultEnvelope(&operation.P, &operation.Op, OperationAddAction)
	if err := operation.Validate(); err != nil {
		return SubmitMessageResult{}, err
	}
	return c.submitOperation(ctx, assemblyTopicID, operation, transactionMemo, OperationAddAction, RegistryTypeAssembly)
}

func (c *Client) AddBlockToAssembly(
	ctx context.Context,
	assemblyTopicID string,
	operation AssemblyAddBlock,
	transactionMemo string,
) (SubmitMessageResult, error) {
	defaultEnvelope(&operation.P, &operation.Op, OperationAddBlock)
	if err := operation.Validate(); err != nil {
		return SubmitMessageResult{}, err
	}
	return c.submitOperation(ctx, assemblyTopicID, operation, transactionMemo, OperationAddBlock, RegistryTypeAssembly)
}

func (c *Client) UpdateAssembly(
	ctx context.Context,
	assemblyTopicID string,
	operation AssemblyUpdate,
	transactionMemo string,
) (SubmitMessageResult, error) {
	defaultEnvelope(&operation.P, &operation.Op, OperationUpdate)
	if err := operation.Validate(); err != nil {
		return SubmitMessageResult{}, err
	}
	return c.submitOperation(ctx, assemblyTopicID, operation, transactionMemo, OperationUpdate, RegistryTypeAssembly)
}

func (c *Client) submitOperation(
	ctx context.Context,
	topicID string,
	payload any,
	transactionMemo string,
	operation AssemblyOperation,
	registryType RegistryType,
) (SubmitMessageResult, error) {
	memo := strings.TrimSpace(transactionMemo)
	if memo == "" {
		memo = DefaultTransactionMemo(operation, registryType)
	}
	return c.SubmitMessage(ctx, topicID, payload, memo)
}

// GetEntries returns the raw HCS-12 messages of a topic. Messages that are not valid
// HCS-12 payloads are skipped.
func (c *Client) GetEntries(ctx context.Context, topicID string, options QueryOptions) ([]RegistryEntry[map[string]any], error) {
	items, err := c.mirrorClient.GetTopicMessages(ctx, topicID, mirror.MessageQueryOptions{
		SequenceNumber: strings.TrimSpace(options.SequenceNumber),
		Limit:          options.Limit,
		Order:          strings.TrimSpace(options.Order),
	})
	if err != nil {
		return nil, err
	}

	entries := make([]RegistryEntry[map[string]any], 0, len(items))
	for _, item := range items {
		entry, err := decodeRawEntry(item)
		if err != nil {
			c.logger.Debug().Err(err).Int64("sequence_number", item.SequenceNumber).Msg("skipping message")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetEntry returns the hcs-12 message stored at sequence on topicID. A missing sequence
// yields false without an error; a message that is not a valid hcs-12 payload is an error.
func (c *Client) GetEntry(ctx context.Context, topicID string, sequence int64) (RegistryEntry[map[string]any], bool, error) {
	item, err := c.mirrorClient.GetTopicMessageBySequence(ctx, topicID, sequence)
	if err != nil {
		return RegistryEntry[map[string]any]{}, false, err
	}
	if item == nil {
		return RegistryEntry[map[string]any]{}, false, nil
	}
	entry, err := decodeRawEntry(*item)
	if err != nil {
		return RegistryEntry[map[string]any]{}, false, err
	}
	return entry, true, nil
}

func decodeRawEntry(item mirror.TopicMessage) (RegistryEntry[map[string]any], error) {
	var payload map[string]any
	if err := mirror.DecodeMessageJSON(item, &payload); err != nil {
		return RegistryEntry[map[string]any]{}, err
	}
	if err := ValidatePayload(payload); err != nil {
		return RegistryEntry[map[string]any]{}, err
	}
	return RegistryEntry[map[string]any]{
		ID:             strconv.FormatInt(item.SequenceNumber, 10),
		SequenceNumber: item.SequenceNumber,
		Timestamp:      item.ConsensusTimestamp,
		Submitter:      item.PayerAccountID,
		Data:           payload,
	}, nil
}

// ContentClient returns a content retriever for this client's network. With an empty
// cdnBaseURL content is replayed from HCS-1 topics through the mirror node.
func (c *Client) ContentClient(cdnBaseURL string) (*ContentClient, error) {
	logger := c.logger
	return NewContentClient(ContentClientConfig{
		Network:    c.network,
		Reader:     c.mirrorClient,
		CDNBaseURL: cdnBaseURL,
		Logger:     &logger,
	})
}

// ActionRegistry returns an action registry backed by topicID.
func (c *Client) ActionRegistry(topicID string, content ContentRetriever) *ActionRegistry {
	return NewActionRegistry(c.registryConfig(topicID, content))
}

func (c *Client) BlockRegistry(topicID string, content ContentRetriever) *BlockRegistry {
	return NewBlockRegistry(c.registryConfig(topicID, content))
}

func (c *Client) AssemblyRegistry(topicID string, content ContentRetriever) *AssemblyRegistry {
	return NewAssemblyRegistry(c.registryConfig(topicID, content))
}

func (c *Client) HashLinksRegistry(topicID string, content ContentRetriever) *HashLinksRegistry {
	return NewHashLinksRegistry(c.registryConfig(topicID, content))
}

func (c *Client) registryConfig(topicID string, content ContentRetriever) RegistryConfig {
	logger := c.logger
	return RegistryConfig{
		TopicID:           topicID,
		Reader:            c.mirrorClient,
		Submitter:         c,
		Content:           content,
		OperatorAccountID: c.operatorID.String(),
		Logger:            &logger,
	}
}

// resolvePublicKey returns nil when no key is requested. A raw key may be a public key or a
// private key whose public half is used.
func (c *Client) resolvePublicKey(raw string, useOperator bool) (hedera.Key, error) {
	if useOperator {
		return c.operatorKey.PublicKey(), nil
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	publicKey, publicErr := hedera.PublicKeyFromString(trimmed)
	if publicErr == nil {
		return publicKey, nil
	}
	privateKey, privateErr := shared.ParsePrivateKey(trimmed)
	if privateErr != nil {
		return nil, fmt.Errorf("failed to parse key as public (%v) or private (%v)", publicErr, privateErr)
	}
	return privateKey.PublicKey(), nil
}
