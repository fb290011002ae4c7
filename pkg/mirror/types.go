package mirror

type TopicInfo struct {
	AdminKey         map[string]any   `json:"admin_key"`
	AutoRenewAccount string           `json:"auto_renew_account"`
	AutoRenewPeriod  int64            `json:"auto_renew_period"`
	CreatedTimestamp string           `json:"created_timestamp"`
	Deleted          bool             `json:"deleted"`
	Memo             string           `json:"memo"`
	SubmitKey        map[string]any   `json:"submit_key"`
	TopicID          string           `json:"topic_id"`
	FeeScheduleKey   map[string]any   `json:"fee_schedule_key"`
	FeeExemptKeyList []map[string]any `json:"fee_exempt_key_list"`
}

type TopicMessage struct {
	ConsensusTimestamp string     `json:"consensus_timestamp"`
	ChunkInfo          *ChunkInfo `json:"chunk_info,omitempty"`
	Message            string     `json:"message"`
	PayerAccountID     string     `json:"payer_account_id"`
	RunningHash        string     `json:"running_hash"`
	RunningHashVersion int64      `json:"running_hash_version"`
	SequenceNumber     int64      `json:"sequence_number"`
	TopicID            string     `json:"topic_id"`
}

type ChunkInfo struct {
	InitialTransactionID any `json:"initial_transaction_id,omitempty"`
	Number               int `json:"number,omitempty"`
	Total                int `json:"total,omitempty"`
}

type topicMessagesResponse struct {
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
	Messages []TopicMessage `json:"messages"`
}
