package urlbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddParams(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		params ParamMap
		want   string
	}{
		{
			name:   "no params",
			url:    "/vivo/visualization",
			params: ParamMap{},
			want:   "/vivo/visualization",
		},
		{
			name:   "first param uses question mark",
			url:    "/vivo/visualization",
			params: NewParamMap("vis", "person_level"),
			want:   "/vivo/visualization?vis=person_level",
		},
		{
			name:   "existing query uses ampersand",
			url:    "/vivo/visualization?uri=x",
			params: NewParamMap("vis", "person_level", "vis_mode", "copi"),
			want:   "/vivo/visualization?uri=x&vis=person_level&vis_mode=copi",
		},
		{
			name:   "values are form encoded",
			url:    "/search",
			params: NewParamMap("q", "a b&c"),
			want:   "/search?q=a+b%26c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddParams(tt.url, tt.params))
		})
	}
}

func TestParamMap_PutReplacesInPlace(t *testing.T) {
	m := NewParamMap("vis", "person_level", "vis_mode", "coauthor")
	m.Put("vis", "entity_comparison")
	assert.Equal(t, "vis=entity_comparison&vis_mode=coauthor", m.Encode())

	other := NewParamMap("vis_mode", "copi", "extra", "1")
	m.PutAll(other)
	assert.Equal(t, "vis=entity_comparison&vis_mode=copi&extra=1", m.Encode())

	v, ok := m.Get("extra")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestNewParamMap_OddPanics(t *testing.T) {
	assert.Panics(t, func() { NewParamMap("vis") })
}

func TestURLEncode(t *testing.T) {
	assert.Equal(t, "http%3A%2F%2Fexample.org%2Findividual%2Fn1", URLEncode("http://example.org/individual/n1"))
	assert.Equal(t, "http%3A%2F%2Fexample.org%2Fo%23x", URLEncode("http://example.org/o#x"))
}

func TestBuilder_ProfileURL(t *testing.T) {
	b := NewBuilder("/vivo/", "http://vivo.example.edu/individual/")

	assert.Equal(t, "/vivo/display/n123", b.ProfileURL("http://vivo.example.edu/individual/n123"))
	assert.Equal(t,
		"/vivo/individual?uri=http%3A%2F%2Fother.org%2Fpeople%2Fp9",
		b.ProfileURL("http://other.org/people/p9"))

	noNS := NewBuilder("", "")
	assert.Equal(t,
		"/individual?uri=http%3A%2F%2Fvivo.example.edu%2Findividual%2Fn123",
		noNS.ProfileURL("http://vivo.example.edu/individual/n123"))
}

func TestBuilder_RouteURL(t *testing.T) {
	b := NewBuilder("app", "")
	assert.Equal(t, "/app/visualization?uri=u", b.RouteURL(RouteVisualization, NewParamMap("uri", "u")))
	assert.Equal(t, "/app/qrcode/about", b.RouteURL(RouteQRCodeAbout, ParamMap{}))
}

func TestNormalizeContextPath(t *testing.T) {
	tests := map[string]string{
		"":       "",
		"/":      "",
		"vivo":   "/vivo",
		"/vivo/": "/vivo",
		" /app ": "/app",
		"/a/b//": "/a/b",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeContextPath(in), "input %q", in)
	}
}
