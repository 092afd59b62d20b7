package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validBranding() Branding {
	return Branding{
		Name:        "corporate",
		Margins:     Margins{Top: 0.5, Bottom: 0.5, Left: 1, Right: 1},
		TitleColor:  "#112233",
		AccentColor: "#abcdef",
		Template:    MarkupTemplate{Body: "<p>hello</p>"},
	}
}

func TestBrandingValidate(t *testing.T) {
	require.NoError(t, validBranding().Validate())

	b := validBranding()
	b.Name = ""
	require.Error(t, b.Validate())

	b = validBranding()
	b.Margins.Left = 4.5
	require.Error(t, b.Validate())

	b = validBranding()
	b.Margins.Top = -0.1
	require.Error(t, b.Validate())

	b = validBranding()
	b.TitleColor = "blue"
	require.Error(t, b.Validate())

	b = validBranding()
	b.AccentColor = "#12345"
	require.Error(t, b.Validate())

	b = validBranding()
	b.Template = nil
	require.Error(t, b.Validate())
}

func TestBrandingEmptyColorsAllowed(t *testing.T) {
	b := validBranding()
	b.TitleColor = ""
	b.AccentColor = ""
	require.NoError(t, b.Validate())
}

func TestHTMLTemplateRequiresHeaderOrFooter(t *testing.T) {
	require.Error(t, HTMLTemplate{}.Validate())
	require.NoError(t, HTMLTemplate{HeaderHTML: "<div>h</div>"}.Validate())
	require.NoError(t, HTMLTemplate{FooterHTML: "<div>f</div>"}.Validate())
}

func TestImageTemplateValidation(t *testing.T) {
	require.Error(t, ImageTemplate{}.Validate())

	good := ImageOverlay{AssetPath: "assets/seal.png", X: 10, Y: 20, Width: 120, Opacity: 0.5}
	require.NoError(t, ImageTemplate{Overlays: []ImageOverlay{good}}.Validate())

	bad := good
	bad.AssetPath = ""
	require.Error(t, ImageTemplate{Overlays: []ImageOverlay{bad}}.Validate())

	bad = good
	bad.Opacity = 1.2
	require.Error(t, ImageTemplate{Overlays: []ImageOverlay{bad}}.Validate())

	bad = good
	bad.Opacity = -0.01
	require.Error(t, ImageTemplate{Overlays: []ImageOverlay{bad}}.Validate())

	bad = good
	bad.Width = 0
	require.Error(t, ImageTemplate{Overlays: []ImageOverlay{bad}}.Validate())
}

func TestSortedOverlaysPaintOrder(t *testing.T) {
	tmpl := ImageTemplate{Overlays: []ImageOverlay{
		{AssetPath: "c.png", Width: 10, Opacity: 1, ZOrder: 2},
		{AssetPath: "a.png", Width: 10, Opacity: 1, ZOrder: 0},
		{AssetPath: "b.png", Width: 10, Opacity: 1, ZOrder: 1},
	}}
	sorted := tmpl.SortedOverlays()
	require.Equal(t, []string{"a.png", "b.png", "c.png"}, []string{
		sorted[0].AssetPath, sorted[1].AssetPath, sorted[2].AssetPath,
	})
	// the template itself is left untouched
	require.Equal(t, "c.png", tmpl.Overlays[0].AssetPath)
}

func TestDecodeTemplatePerMode(t *testing.T) {
	spec, err := decodeTemplate(ModeHTML, []byte(`{"header_html":"<b>h</b>"}`))
	require.NoError(t, err)
	require.Equal(t, ModeHTML, spec.Mode())
	require.Equal(t, "<b>h</b>", spec.(HTMLTemplate).HeaderHTML)

	spec, err = decodeTemplate(ModeImage, []byte(`{"overlays":[{"asset_path":"x.png","width":40,"opacity":1}]}`))
	require.NoError(t, err)
	require.Len(t, spec.(ImageTemplate).Overlays, 1)

	spec, err = decodeTemplate(ModeMarkup, []byte(`{"body":"<p>m</p>"}`))
	require.NoError(t, err)
	require.Equal(t, "<p>m</p>", spec.(MarkupTemplate).Body)

	_, err = decodeTemplate(TemplateMode("PLAIN"), []byte(`{}`))
	require.Error(t, err)
}

func TestDefaultBrandingIsValid(t *testing.T) {
	require.NoError(t, DefaultBranding().Validate())
}
