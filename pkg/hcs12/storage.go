package hcs12

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/hashgraph-online/hashlinks-sdk-go/pkg/mirror"
	"github.com/hashgraph-online/hashlinks-sdk-go/pkg/shared"
	"github.com/rs/zerolog"
)

const dataURLPartCount = 2

var hcs1ReferencePattern = regexp.MustCompile(`^hcs://1/(\d+\.\d+\.\d+)$`)

// ContentRetriever dereferences t_id pointers to content stored outside a registry topic.
type ContentRetriever interface {
	RetrieveContent(ctx context.Context, reference string) ([]byte, error)
}

type ContentClientConfig struct {
	Network string
	// Reader resolves HCS-1 topics directly from the mirror node. Used when CDNBaseURL is empty.
	Reader     TopicReader
	CDNBaseURL string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// ContentClient retrieves HCS-1 inscriptions either through the inscription CDN or by
// replaying the content topic from the mirror node.
type ContentClient struct {
	network    string
	reader     TopicReader
	cdnBaseURL string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewContentClient creates a new ContentClient.
func NewContentClient(config ContentClientConfig) (*ContentClient, error) {
	network, err := shared.NormalizeNetwork(config.Network)
	if err != nil {
		return nil, err
	}
	cdnBaseURL := strings.TrimRight(strings.TrimSpace(config.CDNBaseURL), "/")
	if cdnBaseURL == "" && config.Reader == nil {
		return nil, fmt.Errorf("content client requires a mirror reader or a CDN base URL")
	}
	if cdnBaseURL != "" {
		parsed, err := url.Parse(cdnBaseURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, fmt.Errorf("invalid CDN base URL %q", config.CDNBaseURL)
		}
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ContentClient{
		network:    network,
		reader:     config.Reader,
		cdnBaseURL: cdnBaseURL,
		httpClient: httpClient,
		logger:     resolveLogger(config.Logger).With().Str("component", "hcs12.content").Logger(),
	}, nil
}

// RetrieveContent returns the raw content stored at reference (hcs://1/<topic> or a bare topic ID).
func (c *ContentClient) RetrieveContent(ctx context.Context, reference string) ([]byte, error) {
	topicID, err := ParseContentReference(reference)
	if err != nil {
		return nil, err
	}
	if c.cdnBaseURL != "" {
		return c.fetchFromCDN(ctx, topicID)
	}
	return c.fetchFromTopic(ctx, topicID)
}

// ParseContentReference extracts the storage topic ID from an HCS-1 reference.
func ParseContentReference(reference string) (string, error) {
	trimmed := strings.TrimSpace(reference)
	if matches := hcs1ReferencePattern.FindStringSubmatch(trimmed); len(matches) == 2 {
		return matches[1], nil
	}
	if IsTopicID(trimmed) {
		return trimmed, nil
	}
	return "", fmt.Errorf("invalid content reference %q", reference)
}

func (c *ContentClient) fetchFromCDN(ctx context.Context, topicID string) ([]byte, error) {
	endpoint := fmt.Sprintf(
		"%s/api/inscription-cdn/%s?network=%s",
		c.cdnBaseURL,
		topicID,
		url.QueryEscape(c.network),
	)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("inscription CDN request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inscription CDN response: %w", err)
	}
	if response.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrContentNotFound, topicID)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf(
			"inscription CDN request failed with status %d: %s",
			response.StatusCode,
			strings.TrimSpace(string(body)),
		)
	}
	c.logger.Debug().Str("topic_id", topicID).Int("bytes", len(body)).Msg("retrieved content from CDN")
	return body, nil
}

func (c *ContentClient) fetchFromTopic(ctx context.Context, topicID string) ([]byte, error) {
	messages, err := c.reader.GetTopicMessages(ctx, topicID, mirror.MessageQueryOptions{
		Order: "asc",
	})
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrContentNotFound, topicID)
	}

	payloads, err := assembleLogicalMessages(topicID, messages)
	if err != nil {
		return nil, err
	}
	content, err := decodeHCS1Payloads(payloads)
	if err != nil {
		return nil, fmt.Errorf("failed to decode HCS-1 content at %s: %w", topicID, err)
	}
	c.logger.Debug().Str("topic_id", topicID).Int("bytes", len(content)).Msg("retrieved content from topic")
	return content, nil
}

// assembleLogicalMessages joins ledger-level chunked submissions back into whole messages,
// preserving log order.
func assembleLogicalMessages(topicID string, messages []mirror.TopicMessage) ([][]byte, error) {
	type pendingMessage struct {
		total  int
		chunks map[int][]byte
	}

	payloads := make([][]byte, 0, len(messages))
	pending := map[string]*pendingMessage{}
	pendingOrder := map[string]int{}

	for _, message := range messages {
		payload, err := mirror.DecodeMessageData(message)
		if err != nil {
			return nil, err
		}
		if message.ChunkInfo == nil || message.ChunkInfo.Total <= 1 {
			payloads = append(payloads, payload)
			continue
		}

		transactionID := extractChunkTransactionID(message.ChunkInfo.InitialTransactionID)
		if transactionID == "" {
			return nil, fmt.Errorf("chunked payload at %s is missing initial transaction ID", topicID)
		}
		entry, exists := pending[transactionID]
		if !exists {
			entry = &pendingMessage{total: message.ChunkInfo.Total, chunks: map[int][]byte{}}
			pending[transactionID] = entry
			pendingOrder[transactionID] = len(payloads)
			payloads = append(payloads, nil)
		}
		entry.chunks[message.ChunkInfo.Number] = payload
	}

	for transactionID, entry := range pending {
		if len(entry.chunks) != entry.total {
			return nil, fmt.Errorf(
				"chunked payload at %s incomplete: expected %d chunks, found %d",
				topicID,
				entry.total,
				len(entry.chunks),
			)
		}
		combined := make([]byte, 0)
		for number := 1; number <= entry.total; number++ {
			chunk, exists := entry.chunks[number]
			if !exists {
				return nil, fmt.Errorf("chunked payload at %s missing chunk %d", topicID, number)
			}
			combined = append(combined, chunk...)
		}
		payloads[pendingOrder[transactionID]] = combined
	}

	return payloads, nil
}

type hcs1Chunk struct {
	Order   *int   `json:"o"`
	Content string `json:"c"`
}

// decodeHCS1Payloads orders {"o","c"} chunks, unwraps the data URL and brotli-decompresses
// the result when it is compressed. Payloads that are not chunk envelopes are returned as-is.
func decodeHCS1Payloads(payloads [][]byte) ([]byte, error) {
	chunks := make([]hcs1Chunk, 0, len(payloads))
	for _, payload := range payloads {
		trimmed := bytes.TrimSpace(payload)
		if len(trimmed) == 0 || trimmed[0] != '{' || !bytes.Contains(trimmed, []byte(`"c"`)) {
			continue
		}
		var chunk hcs1Chunk
		if err := json.Unmarshal(trimmed, &chunk); err != nil || chunk.Content == "" {
			continue
		}
		if chunk.Order == nil {
			order := len(chunks)
			chunk.Order = &order
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) == 0 {
		if len(payloads) == 0 {
			return nil, fmt.Errorf("no payload")
		}
		return payloads[0], nil
	}

	sort.SliceStable(chunks, func(left, right int) bool {
		return *chunks[left].Order < *chunks[right].Order
	})
	var builder strings.Builder
	for _, chunk := range chunks {
		builder.WriteString(chunk.Content)
	}

	decoded, err := decodeDataURLPayload(builder.String())
	if err != nil {
		return nil, err
	}

	decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(decoded)))
	if err == nil && len(decompressed) > 0 {
		return decompressed, nil
	}
	return decoded, nil
}

func decodeDataURLPayload(input string) ([]byte, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "data:") {
		return nil, fmt.Errorf("unsupported HCS-1 payload format")
	}

	parts := strings.SplitN(trimmed, ",", dataURLPartCount)
	if len(parts) != dataURLPartCount {
		return nil, fmt.Errorf("invalid HCS-1 data URL")
	}

	header := strings.ToLower(parts[0])
	if strings.Contains(header, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("failed to decode HCS-1 base64 payload: %w", err)
		}
		return decoded, nil
	}

	unescaped, err := url.QueryUnescape(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode HCS-1 payload: %w", err)
	}
	return []byte(unescaped), nil
}

func extractChunkTransactionID(initialTransactionID any) string {
	switch typed := initialTransactionID.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		accountID, _ := typed["account_id"].(string)
		validStart, _ := typed["transaction_valid_start"].(string)
		if strings.TrimSpace(validStart) == "" {
			validStart, _ = typed["valid_start_timestamp"].(string)
		}
		if strings.TrimSpace(accountID) != "" && strings.TrimSpace(validStart) != "" {
			return accountID + "@" + validStart
		}
	}
	return ""
}
