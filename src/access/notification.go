package access

import "encoding/json"

// flexID decodes a JSON string or number into its string form.
type flexID string

func (f *flexID) UnmarshalJSON(raw []byte) error {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// ParseNotification extracts the payment id from a MercadoPago webhook
// payload. Deliveries carry the id either nested under data.id or at the top
// level, as a string or a number; both shapes normalize to a string id.
// Returns false when no id is present.
func ParseNotification(body []byte) (string, bool) {
	var nested struct {
		Data struct {
			ID flexID `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Data.ID != "" {
		return string(nested.Data.ID), true
	}

	var flat struct {
		ID flexID `json:"id"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.ID != "" {
		return string(flat.ID), true
	}

	return "", false
}
