package tabletki

import (
	"github.com/google/uuid"
)

// Device defaults reported by the Android build of the mobile app.
const (
	DefaultUserAgent       = "Dalvik/2.1.0 (Linux; U; Android 16; Pixel 8 Pro Build/BP41.250822.010)"
	DefaultDeviceOS        = "android"
	DefaultDeviceOSVersion = "36"
	DefaultAppVersion      = "4.1.674"
	DefaultLang            = "uk"
)

// Header names expected by the upstream API. Case matters.
const (
	HeaderADID            = "adid"
	HeaderAppAPIToken     = "AppApiToken"
	HeaderAppVersion      = "appVersion"
	HeaderDeviceID        = "deviceID"
	HeaderDeviceOS        = "deviceOS"
	HeaderDeviceOSVersion = "deviceOSversion"
	HeaderIsNewUser       = "isNewUser"
	HeaderLang            = "Lang"
	HeaderUserAgent       = "User-Agent"
	HeaderUserID          = "UserID"
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderAccept          = "Accept"
	HeaderLocation        = "Location"
)

// DeviceProfile is the synthetic device/user identity attached to every request.
//
// LocationHeader is the only field that changes after construction: it holds
// the last location id resolved by Client.LocationByIP.
type DeviceProfile struct {
	ADID            string `json:"adid"`
	DeviceID        string `json:"device_id"`
	UserID          string `json:"user_id"`
	UserAgent       string `json:"user_agent"`
	DeviceOS        string `json:"device_os"`
	DeviceOSVersion string `json:"device_os_version"`
	AppVersion      string `json:"app_version"`
	Lang            string `json:"lang"`
	IsNewUser       bool   `json:"is_new_user"`
	LocationHeader  string `json:"location_header"`
}

// DeviceOption overrides a generated profile field.
type DeviceOption func(*DeviceProfile)

func WithADID(id string) DeviceOption           { return func(p *DeviceProfile) { p.ADID = id } }
func WithDeviceID(id string) DeviceOption       { return func(p *DeviceProfile) { p.DeviceID = id } }
func WithUserID(id string) DeviceOption         { return func(p *DeviceProfile) { p.UserID = id } }
func WithUserAgent(ua string) DeviceOption      { return func(p *DeviceProfile) { p.UserAgent = ua } }
func WithDeviceOS(os string) DeviceOption       { return func(p *DeviceProfile) { p.DeviceOS = os } }
func WithOSVersion(v string) DeviceOption       { return func(p *DeviceProfile) { p.DeviceOSVersion = v } }
func WithAppVersion(v string) DeviceOption      { return func(p *DeviceProfile) { p.AppVersion = v } }
func WithLang(lang string) DeviceOption         { return func(p *DeviceProfile) { p.Lang = lang } }
func WithNewUser(isNew bool) DeviceOption       { return func(p *DeviceProfile) { p.IsNewUser = isNew } }
func WithLocationHeader(id string) DeviceOption { return func(p *DeviceProfile) { p.LocationHeader = id } }

// GenerateDevice builds a profile with fresh random identifiers. Empty
// identifier overrides are replaced with generated ones.
func GenerateDevice(opts ...DeviceOption) DeviceProfile {
	p := DeviceProfile{
		UserAgent:       DefaultUserAgent,
		DeviceOS:        DefaultDeviceOS,
		DeviceOSVersion: DefaultDeviceOSVersion,
		AppVersion:      DefaultAppVersion,
		Lang:            DefaultLang,
		IsNewUser:       true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	if p.ADID == "" {
		p.ADID = uuid.NewString()
	}
	if p.DeviceID == "" {
		p.DeviceID = uuid.NewString()
	}
	if p.UserID == "" {
		p.UserID = uuid.NewString()
	}
	return p
}

// Headers returns the header set required by every upstream call. Location
// is included only when a location id is stored.
func (p DeviceProfile) Headers(appAPIToken string) map[string]string {
	isNew := "0"
	if p.IsNewUser {
		isNew = "1"
	}
	h := map[string]string{
		HeaderADID:            p.ADID,
		HeaderAppAPIToken:     appAPIToken,
		HeaderAppVersion:      p.AppVersion,
		HeaderDeviceID:        p.DeviceID,
		HeaderDeviceOS:        p.DeviceOS,
		HeaderDeviceOSVersion: p.DeviceOSVersion,
		HeaderIsNewUser:       isNew,
		HeaderLang:            p.Lang,
		HeaderUserAgent:       p.UserAgent,
		HeaderUserID:          p.UserID,
		HeaderAcceptEncoding:  "gzip, deflate",
		HeaderAccept:          "application/json",
	}
	if p.LocationHeader != "" {
		h[HeaderLocation] = p.LocationHeader
	}
	return h
}
