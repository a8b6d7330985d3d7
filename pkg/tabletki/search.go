package tabletki

// SearchItem is a single search hint.
type SearchItem struct {
	Image          *string `mapstructure:"image" json:"image"`
	Icon           *string `mapstructure:"icon" json:"icon"`
	Description    *string `mapstructure:"description" json:"description"`
	URL            *string `mapstructure:"url" json:"url"`
	CanBeDelivered *bool   `mapstructure:"canBeDelivered" json:"canBeDelivered"`
	UTMData        any     `mapstructure:"utmData" json:"utmData"`
	Highlight      any     `mapstructure:"highlight" json:"highlight"`
	Name           *string `mapstructure:"name" json:"name"`
	ScreenViewType *string `mapstructure:"screenViewType" json:"screenViewType"`
	// Code is the internal goods code used by ProductCard lookups.
	Code *string `mapstructure:"code" json:"code"`
}

// SearchGroup groups hints under a heading (goods, trade names, categories).
type SearchGroup struct {
	Name        string       `mapstructure:"name" json:"name"`
	SearchItems []SearchItem `mapstructure:"searchItems" json:"searchItems"`
}

// SearchHintsResult is the searchHintsV2 response.
type SearchHintsResult struct {
	TagGroup       any           `mapstructure:"tagGroup" json:"tagGroup"`
	Group          []SearchGroup `mapstructure:"group" json:"group"`
	CanBeDelivered *bool         `mapstructure:"canBeDelivered" json:"canBeDelivered"`
	Code           int           `mapstructure:"code" json:"code"`
	Description    *string       `mapstructure:"description" json:"description"`
}

// Items flattens every group into a single list, preserving order.
func (r SearchHintsResult) Items() []SearchItem {
	var out []SearchItem
	for _, g := range r.Group {
		out = append(out, g.SearchItems...)
	}
	return out
}

// ParseSearchHints builds a SearchHintsResult from a decoded JSON object.
func ParseSearchHints(m map[string]any) (SearchHintsResult, error) {
	var res SearchHintsResult
	if err := decodeInto(m, &res); err != nil {
		return SearchHintsResult{}, err
	}
	res.Group = orEmpty(res.Group)
	for i := range res.Group {
		res.Group[i].SearchItems = orEmpty(res.Group[i].SearchItems)
	}
	return res, nil
}
