package tabletki

// ImageAsset is a product image in several renditions.
type ImageAsset struct {
	// ID falls back to the upper-cased "Id" key some payloads use.
	ID         *string `mapstructure:"id" json:"id"`
	Type       *string `mapstructure:"type" json:"type"`
	URL        *string `mapstructure:"url" json:"url"`
	BigURL     *string `mapstructure:"bigUrl" json:"bigUrl"`
	PreviewURL *string `mapstructure:"previewUrl" json:"previewUrl"`
	Order      *int    `mapstructure:"order" json:"order"`
	GoodsName  *string `mapstructure:"goodsname" json:"goodsname"`
}

type CharacteristicValue struct {
	ID             *string `mapstructure:"id" json:"id"`
	Name           *string `mapstructure:"name" json:"name"`
	Code           *string `mapstructure:"code" json:"code"`
	ScreenViewType *string `mapstructure:"screenViewType" json:"screenViewType"`
	Image          *string `mapstructure:"image" json:"image"`
	URLName        *string `mapstructure:"urlName" json:"urlName"`
}

// Characteristic is a named attribute group, e.g. "Form" or "Manufacturer".
type Characteristic struct {
	ID     string                `mapstructure:"id" json:"id"`
	Name   string                `mapstructure:"name" json:"name"`
	Values []CharacteristicValue `mapstructure:"values" json:"values"`
	Order  *int                  `mapstructure:"order" json:"order"`
}

// HTMLSection is one anchored block of description or instruction markup.
type HTMLSection struct {
	ID     string  `mapstructure:"id" json:"id"`
	Title  string  `mapstructure:"title" json:"title"`
	Anchor *string `mapstructure:"anchor" json:"anchor"`
	Order  *int    `mapstructure:"order" json:"order"`
	HTML   string  `mapstructure:"html" json:"html"`
}

type FAQItem struct {
	Title    string  `mapstructure:"title" json:"title"`
	Text     string  `mapstructure:"text" json:"text"`
	Priority *int    `mapstructure:"priority" json:"priority"`
	Anchor   *string `mapstructure:"anchor" json:"anchor"`
}

type FAQGroup struct {
	Title    string    `mapstructure:"title" json:"title"`
	Priority *int      `mapstructure:"priority" json:"priority"`
	Items    []FAQItem `mapstructure:"items" json:"items"`
}

type DosageInfo struct {
	InputType *int     `mapstructure:"inputType" json:"inputType"`
	Count     *float64 `mapstructure:"count" json:"count"`
	NameRu    *string  `mapstructure:"nameRu" json:"nameRu"`
	NameUk    *string  `mapstructure:"nameUk" json:"nameUk"`
	TitleRu   *string  `mapstructure:"titleRu" json:"titleRu"`
	TitleUk   *string  `mapstructure:"titleUk" json:"titleUk"`
}

type AboutProduction struct {
	ProducersName *string `mapstructure:"producersName" json:"producersName"`
	Code          *string `mapstructure:"code" json:"code"`
	Logo          *string `mapstructure:"logo" json:"logo"`
	FactoriesInfo any     `mapstructure:"factoriesInfo" json:"factoriesInfo"`
	Descriptions  any     `mapstructure:"descriptions" json:"descriptions"`
}

type WaitlistInfo struct {
	GoodsIntCode *int    `mapstructure:"goodsIntCode" json:"goodsIntCode"`
	ShowButton   *bool   `mapstructure:"showButton" json:"showButton"`
	CanAdd       *bool   `mapstructure:"canAdd" json:"canAdd"`
	Description  *string `mapstructure:"description" json:"description"`
}

type DeliveryDataInfo struct {
	PriceMin *float64 `mapstructure:"priceMin" json:"priceMin"`
}

// HintData carries the waitlist and delivery hints shown on the card.
type HintData struct {
	WaitlistInfo     *WaitlistInfo     `mapstructure:"waitlistInfo" json:"waitlistInfo"`
	DeliveryDataInfo *DeliveryDataInfo `mapstructure:"deliveryDataInfo" json:"deliveryDataInfo"`
}

// DFP holds the ad-targeting categorization tags.
type DFP struct {
	Goods       *string  `mapstructure:"GOODS" json:"GOODS"`
	ClassGoods  *string  `mapstructure:"CLASSGOODS" json:"CLASSGOODS"`
	ClassGoods2 *string  `mapstructure:"CLASSGOODS2" json:"CLASSGOODS2"`
	ATC         []string `mapstructure:"ATC" json:"ATC"`
	ATCFull     []string `mapstructure:"ATCFull" json:"ATCFull"`
	URL         *string  `mapstructure:"URL" json:"URL"`
	Categories  []string `mapstructure:"CATEGORIES" json:"CATEGORIES"`
	TownID      *string  `mapstructure:"TownId" json:"TownId"`
}

// ProductCard is the full product detail payload.
type ProductCard struct {
	GoodsName           *string `mapstructure:"goodsName" json:"goodsName"`
	GoodsID             *string `mapstructure:"goodsId" json:"goodsId"`
	GoodsIntCode        *string `mapstructure:"goodsIntCode" json:"goodsIntCode"`
	TradeName           *string `mapstructure:"tradeName" json:"tradeName"`
	TradenameLink       *string `mapstructure:"tradenameLink" json:"tradenameLink"`
	TradeNameIntCode    *string `mapstructure:"tradeNameIntCode" json:"tradeNameIntCode"`
	TopTradeNameIntCode *string `mapstructure:"topTradeNameIntCode" json:"topTradeNameIntCode"`

	IsDrugs        *bool `mapstructure:"isDrugs" json:"isDrugs"`
	IsTradeName    *bool `mapstructure:"isTradeName" json:"isTradeName"`
	IsSingleSku    *bool `mapstructure:"isSingleSku" json:"isSingleSku"`
	CanBeDelivered *bool `mapstructure:"canBeDelivered" json:"canBeDelivered"`
	HasInstruction *bool `mapstructure:"hasInstruction" json:"hasInstruction"`
	HasFAQ         *bool `mapstructure:"hasFaq" json:"hasFaq"`

	PriceMin     *float64 `mapstructure:"priceMin" json:"priceMin"`
	PriceMax     *float64 `mapstructure:"priceMax" json:"priceMax"`
	ShareURL     *string  `mapstructure:"shareUrl" json:"shareUrl"`
	CanonicalURL *string  `mapstructure:"canonicalUrl" json:"canonicalUrl"`
	AnalyticsURL *string  `mapstructure:"analyticsUrl" json:"analyticsUrl"`

	Images             []ImageAsset     `mapstructure:"images" json:"images"`
	Characteristics    []Characteristic `mapstructure:"characteristics" json:"characteristics"`
	DescriptionByParts []HTMLSection    `mapstructure:"descriptionByParts" json:"descriptionByParts"`
	InstructionByParts []HTMLSection    `mapstructure:"instructionByParts" json:"instructionByParts"`
	FAQs               []FAQGroup       `mapstructure:"faqs" json:"faqs"`

	AboutProduction *AboutProduction   `mapstructure:"aboutProduction" json:"aboutProduction"`
	DosageInfo      *DosageInfo        `mapstructure:"dosageInfo" json:"dosageInfo"`
	HintData        *HintData          `mapstructure:"hintData" json:"hintData"`
	DFP             *DFP               `mapstructure:"dfp" json:"dfp"`
	PriceHistory    map[string]float64 `mapstructure:"priceHistory" json:"priceHistory"`

	// Raw is the untouched payload, kept for fields not modelled above.
	Raw map[string]any `mapstructure:"-" json:"-"`
}

// ParseProductCard builds a ProductCard from a decoded JSON object.
func ParseProductCard(m map[string]any) (ProductCard, error) {
	var card ProductCard
	if err := decodeInto(m, &card); err != nil {
		return ProductCard{}, err
	}

	card.Images = orEmpty(card.Images)
	if err := fillImageIDs(m, card.Images); err != nil {
		return ProductCard{}, err
	}
	card.Characteristics = orEmpty(card.Characteristics)
	for i := range card.Characteristics {
		card.Characteristics[i].Values = orEmpty(card.Characteristics[i].Values)
	}
	card.DescriptionByParts = orEmpty(card.DescriptionByParts)
	card.InstructionByParts = orEmpty(card.InstructionByParts)
	card.FAQs = orEmpty(card.FAQs)
	for i := range card.FAQs {
		card.FAQs[i].Items = orEmpty(card.FAQs[i].Items)
	}
	if card.DFP != nil {
		card.DFP.ATC = orEmpty(card.DFP.ATC)
		card.DFP.ATCFull = orEmpty(card.DFP.ATCFull)
		card.DFP.Categories = orEmpty(card.DFP.Categories)
	}
	if card.PriceHistory == nil {
		card.PriceHistory = map[string]float64{}
	}

	card.Raw = m
	if card.Raw == nil {
		card.Raw = map[string]any{}
	}
	return card, nil
}

// fillImageIDs takes an image id from the upper-cased "Id" key when "id" is
// missing, null or empty.
func fillImageIDs(m map[string]any, images []ImageAsset) error {
	raw, _ := m["images"].([]any)
	for i := range images {
		if i >= len(raw) {
			break
		}
		if images[i].ID != nil && *images[i].ID != "" {
			continue
		}
		item, ok := raw[i].(map[string]any)
		if !ok {
			continue
		}
		var alt struct {
			ID *string `mapstructure:"Id"`
		}
		if err := decodeInto(item, &alt); err != nil {
			return err
		}
		if alt.ID != nil {
			images[i].ID = alt.ID
		}
	}
	return nil
}
