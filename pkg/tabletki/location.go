package tabletki

// Location is the geocoded administrative area returned by locationByIp.
type Location struct {
	AreaID       string  `mapstructure:"areaId" json:"areaId"`
	ID           string  `mapstructure:"id" json:"id"`
	Name         string  `mapstructure:"name" json:"name"`
	NameRu       *string `mapstructure:"nameRu" json:"nameRu"`
	NameUk       *string `mapstructure:"nameUk" json:"nameUk"`
	Name2        *string `mapstructure:"name2" json:"name2"`
	Name3        *string `mapstructure:"name3" json:"name3"`
	Name4        *string `mapstructure:"name4" json:"name4"`
	NorthEastLat float64 `mapstructure:"northEastLat" json:"northEastLat"`
	NorthEastLng float64 `mapstructure:"northEastLng" json:"northEastLng"`
	SouthWestLat float64 `mapstructure:"southWestLat" json:"southWestLat"`
	SouthWestLng float64 `mapstructure:"southWestLng" json:"southWestLng"`
	URL          string  `mapstructure:"url" json:"url"`
	URLRu        *string `mapstructure:"urlRu" json:"urlRu"`
	URLUk        *string `mapstructure:"urlUk" json:"urlUk"`
	Index        bool    `mapstructure:"index" json:"index"`
	Priority     int     `mapstructure:"priority" json:"priority"`
}

// ParseLocation builds a Location from a decoded JSON object.
func ParseLocation(m map[string]any) (Location, error) {
	var loc Location
	if err := decodeInto(m, &loc); err != nil {
		return Location{}, err
	}
	return loc, nil
}
