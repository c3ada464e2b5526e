package enroll

import (
	"fmt"
	"net/url"
	"regexp"
)

// Category names accepted by the booking API.
const (
	CategoryGeneralElective   = "general-elective"
	CategoryPhysicalEducation = "physical-education"
)

// Category is one course-category variant of the selection protocol. Each
// variant knows its remote category code, how to dig the context id out of
// the index page, and which auxiliary form fields the resolve step needs.
type Category interface {
	Name() string
	Code() string
	ExtractContextID(html string) (string, bool)
	AuxFields(html string) url.Values
}

// ByName maps an API category name onto its protocol variant.
func ByName(name string) (Category, error) {
	switch name {
	case CategoryGeneralElective:
		return GeneralElective{}, nil
	case CategoryPhysicalEducation:
		return PhysicalEducation{}, nil
	default:
		return nil, fmt.Errorf("unsupported course category %q", name)
	}
}

var (
	// The plain hidden field is present when only general electives are open;
	// the tab anchor appears once other elective types share the page.
	geContextPattern         = regexp.MustCompile(`<input type="hidden" name="firstXkkzId" id="firstXkkzId" value="(.*?)"/>`)
	geContextFallbackPattern = regexp.MustCompile(`<a id="tab_kklx_10".*?"queryCourse\(.*?,'10','(.*?)','.*?','.*?'\)".*?>通识选修课</a>`)
	peContextPattern         = regexp.MustCompile(`(?s)<a id="tab_kklx_05".*?"queryCourse\(.*?,'05','(.*?)','.*?','.*?'\)".*?>体育分项</a>`)

	hiddenInputPattern = regexp.MustCompile(`<input type="hidden" name="([a-z_]+)"[^>]*value="(.*?)"`)
)

// GeneralElective is category code 10.
type GeneralElective struct{}

func (GeneralElective) Name() string { return CategoryGeneralElective }
func (GeneralElective) Code() string { return "10" }

func (GeneralElective) ExtractContextID(html string) (string, bool) {
	if m := geContextPattern.FindStringSubmatch(html); m != nil {
		return m[1], true
	}
	if m := geContextFallbackPattern.FindStringSubmatch(html); m != nil {
		return m[1], true
	}
	return "", false
}

func (GeneralElective) AuxFields(string) url.Values { return url.Values{} }

// PhysicalEducation is category code 05. Its resolve request additionally
// carries page-scoped constants (department, class, sex code, campus and the
// like) scraped from hidden inputs on the index page.
type PhysicalEducation struct{}

func (PhysicalEducation) Name() string { return CategoryPhysicalEducation }
func (PhysicalEducation) Code() string { return "05" }

func (PhysicalEducation) ExtractContextID(html string) (string, bool) {
	if m := peContextPattern.FindStringSubmatch(html); m != nil {
		return m[1], true
	}
	return "", false
}

// peAuxDefaults are the server's placeholder values, used for any constant
// the page does not carry.
var peAuxDefaults = map[string]string{
	"zyfx_id": "666",
	"bh_id":   "666",
	"xbm":     "666",
	"xslbdm":  "666",
	"mzm":     "666",
	"xz":      "666",
	"ccdm":    "666",
	"xsbj":    "666",
	"xqh_id":  "666",
	"jg_id":   "206",
}

func (PhysicalEducation) AuxFields(html string) url.Values {
	scraped := make(map[string]string)
	for _, m := range hiddenInputPattern.FindAllStringSubmatch(html, -1) {
		scraped[m[1]] = m[2]
	}

	fields := url.Values{}
	for name, fallback := range peAuxDefaults {
		value := fallback
		if v, ok := scraped[name]; ok && v != "" {
			value = v
		}
		fields.Set(name, value)
	}
	return fields
}
