package domain

import (
	"encoding/json"
	"strconv"
)

// Shop represents the single connected Etsy seller account.
// At most one shop exists locally; absence means "disconnected".
type Shop struct {
	ShopID     int64    `json:"shop_id"`
	ShopName   string   `json:"shop_name"`
	ShopURL    string   `json:"url"`
	APIKey     string   `json:"-"`
	CreateDate FlexDate `json:"create_date"`
	IconURL    string   `json:"icon_url_fullxfull"`
}

// Connected reports whether the shop record carries enough data to talk
// to the Etsy API.
func (s *Shop) Connected() bool {
	return s != nil && s.ShopURL != "" && s.APIKey != ""
}

// FlexDate holds a creation date exactly as the API returned it. Etsy
// has shipped this field both as a Unix timestamp and as a formatted
// string, so the raw value is kept and interpreted at display time.
type FlexDate string

func (d *FlexDate) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = FlexDate(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = FlexDate(n.String())
	return nil
}

func (d FlexDate) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(d), 10, 64); err == nil {
		return []byte(d), nil
	}
	return json.Marshal(string(d))
}

func (d FlexDate) String() string { return string(d) }
