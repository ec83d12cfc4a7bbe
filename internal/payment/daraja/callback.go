package daraja

// STKCallback is the body Daraja posts after an STK push resolves.
// ResultCode 0 means the customer paid; anything else is a failure or a
// cancellation on the handset.
type STKCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []MetadataItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// Metadata flattens the callback items into a name-value map.
func (c STKCallback) Metadata() map[string]any {
	meta := make(map[string]any)
	for _, item := range c.Body.StkCallback.CallbackMetadata.Item {
		meta[item.Name] = item.Value
	}
	return meta
}

// ReceiptNumber extracts the MpesaReceiptNumber item, if present.
func (c STKCallback) ReceiptNumber() string {
	if v, ok := c.Metadata()["MpesaReceiptNumber"].(string); ok {
		return v
	}
	return ""
}

// B2CResult is the body Daraja posts after a B2C transfer resolves.
type B2CResult struct {
	Result struct {
		ResultType               int    `json:"ResultType"`
		ResultCode               int    `json:"ResultCode"`
		ResultDesc               string `json:"ResultDesc"`
		ConversationID           string `json:"ConversationID"`
		OriginatorConversationID string `json:"OriginatorConversationID"`
		TransactionID            string `json:"TransactionID"`
	} `json:"Result"`
}
