package report

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// TemplateMode selects how a branding dresses the rendered document.
type TemplateMode string

const (
	ModeHTML   TemplateMode = "HTML"
	ModeImage  TemplateMode = "IMAGE"
	ModeMarkup TemplateMode = "MARKUP"
)

// Margins are expressed in inches.
type Margins struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Branding is a named document dressing. The mode-specific settings live in
// Template; each mode carries only the fields it needs.
type Branding struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Margins     Margins      `json:"margins"`
	TitleColor  string       `json:"title_color"`
	AccentColor string       `json:"accent_color"`
	Template    TemplateSpec `json:"template"`
}

// TemplateSpec is the mode tag of a branding variant. One concrete spec type
// exists per template mode so each mode's required fields are checked by type.
type TemplateSpec interface {
	Mode() TemplateMode
	Validate() error
}

// HTMLTemplate wraps the document body with free-form header/footer HTML.
type HTMLTemplate struct {
	HeaderHTML string `json:"header_html"`
	FooterHTML string `json:"footer_html"`
}

func (t HTMLTemplate) Mode() TemplateMode { return ModeHTML }

func (t HTMLTemplate) Validate() error {
	if t.HeaderHTML == "" && t.FooterHTML == "" {
		return errors.New("html template requires a header or a footer")
	}
	return nil
}

// ImageOverlay is a positioned image stamped onto the page.
type ImageOverlay struct {
	AssetPath string  `json:"asset_path"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Opacity   float64 `json:"opacity"`
	ZOrder    int     `json:"z_order"`
}

// ImageTemplate stamps one or more overlays (letterheads, watermarks, seals)
// onto the document.
type ImageTemplate struct {
	Overlays []ImageOverlay `json:"overlays"`
}

func (t ImageTemplate) Mode() TemplateMode { return ModeImage }

func (t ImageTemplate) Validate() error {
	if len(t.Overlays) == 0 {
		return errors.New("image template requires at least one overlay")
	}
	for i, o := range t.Overlays {
		if o.AssetPath == "" {
			return fmt.Errorf("overlay %d: asset path is required", i)
		}
		if o.Opacity < 0 || o.Opacity > 1 {
			return fmt.Errorf("overlay %d: opacity must be within [0,1]", i)
		}
		if o.Width <= 0 {
			return fmt.Errorf("overlay %d: width must be positive", i)
		}
	}
	return nil
}

// SortedOverlays returns the overlays in paint order (ascending z-order).
func (t ImageTemplate) SortedOverlays() []ImageOverlay {
	overlays := append([]ImageOverlay(nil), t.Overlays...)
	sort.SliceStable(overlays, func(i, j int) bool { return overlays[i].ZOrder < overlays[j].ZOrder })
	return overlays
}

// MarkupTemplate injects a trusted markup fragment above the document body.
type MarkupTemplate struct {
	Body string `json:"body"`
}

func (t MarkupTemplate) Mode() TemplateMode { return ModeMarkup }

func (t MarkupTemplate) Validate() error {
	if t.Body == "" {
		return errors.New("markup template requires a body")
	}
	return nil
}

// Validate checks the branding's common fields and its mode-specific spec.
func (b Branding) Validate() error {
	if b.Name == "" {
		return errors.New("branding name is required")
	}
	for _, m := range []float64{b.Margins.Top, b.Margins.Bottom, b.Margins.Left, b.Margins.Right} {
		if m < 0 || m > 4 {
			return errors.New("margins must be within [0,4] inches")
		}
	}
	if b.TitleColor != "" && !colorPattern.MatchString(b.TitleColor) {
		return fmt.Errorf("invalid title color %q", b.TitleColor)
	}
	if b.AccentColor != "" && !colorPattern.MatchString(b.AccentColor) {
		return fmt.Errorf("invalid accent color %q", b.AccentColor)
	}
	if b.Template == nil {
		return errors.New("branding template is required")
	}
	return b.Template.Validate()
}

// DefaultBranding is used when no branding is configured.
func DefaultBranding() Branding {
	return Branding{
		Name:        "default",
		Margins:     Margins{Top: 0.6, Bottom: 0.6, Left: 0.8, Right: 0.8},
		TitleColor:  "#1a2633",
		AccentColor: "#2a6fb0",
		Template:    MarkupTemplate{Body: "<div class=\"brand\">Meridian</div>"},
	}
}
