package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/itinmap/internal/model"
)

const (
	leafletCSS = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"
	leafletJS  = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Synthesizer turns day routes into a self-contained Leaflet map fragment
type Synthesizer struct {
	cfg   model.RenderConfig
	newID func() string
}

// NewSynthesizer creates a synthesizer; zero config fields take the defaults
func NewSynthesizer(cfg model.RenderConfig) *Synthesizer {
	def := model.DefaultConfig().Render
	if cfg.Zoom <= 0 {
		cfg.Zoom = def.Zoom
	}
	if cfg.TileURL == "" {
		cfg.TileURL = def.TileURL
		cfg.Attribution = def.Attribution
	}
	if cfg.Height == "" {
		cfg.Height = def.Height
	}
	if !cfg.DefaultCenter.Valid() {
		cfg.DefaultCenter = def.DefaultCenter
	}
	return &Synthesizer{cfg: cfg, newID: uuid.NewString}
}

// Synthesize builds the artifact. With no resolved coordinates the map centers on the
// configured default.
func (s *Synthesizer) Synthesize(routes []model.DayRoute) model.MapArtifact {
	id := s.newID()
	center := Centroid(routes, s.cfg.DefaultCenter)

	return model.MapArtifact{
		ID:     id,
		Center: center,
		Routes: routes,
		Markup: s.markup(id, center, routes),
	}
}

// Centroid averages every valid stop coordinate, or returns fallback
func Centroid(routes []model.DayRoute, fallback model.LatLng) model.LatLng {
	var lat, lng float64
	n := 0
	for _, r := range routes {
		for _, st := range r.Stops {
			if !st.Location.Valid() {
				continue
			}
			lat += st.Location.Lat
			lng += st.Location.Lng
			n++
		}
	}
	if n == 0 {
		return fallback
	}
	return model.LatLng{Lat: lat / float64(n), Lng: lng / float64(n)}
}

// mapData is the payload handed to the map script
type mapData struct {
	Element     string       `json:"element"`
	Center      model.LatLng `json:"center"`
	Zoom        int          `json:"zoom"`
	Tiles       string       `json:"tiles"`
	Attribution string       `json:"attribution"`
	Days        []dayLayer   `json:"days"`
}

type dayLayer struct {
	Label string       `json:"label"`
	Color string       `json:"color"`
	Path  [][2]float64 `json:"path,omitempty"`
	Stops []marker     `json:"stops"`
}

type marker struct {
	N     int     `json:"n"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Title string  `json:"title"`
	Popup string  `json:"popup"`
}

func (s *Synthesizer) data(id string, center model.LatLng, routes []model.DayRoute) mapData {
	d := mapData{
		Element:     "itinmap-" + id,
		Center:      center,
		Zoom:        s.cfg.Zoom,
		Tiles:       s.cfg.TileURL,
		Attribution: s.cfg.Attribution,
		Days:        make([]dayLayer, 0, len(routes)),
	}

	for _, r := range routes {
		color := r.Color
		if !hexColor.MatchString(color) {
			color = model.DefaultPalette[0]
		}
		layer := dayLayer{
			Label: fmt.Sprintf("Day %d", r.Day),
			Color: color,
			Stops: make([]marker, 0, len(r.Stops)),
		}
		for _, p := range r.Polyline {
			layer.Path = append(layer.Path, [2]float64{p.Lat, p.Lng})
		}
		for i, st := range r.Stops {
			layer.Stops = append(layer.Stops, marker{
				N:     i + 1,
				Lat:   st.Location.Lat,
				Lng:   st.Location.Lng,
				Title: displayName(st),
				Popup: popup(st, r.Day, i+1),
			})
		}
		d.Days = append(d.Days, layer)
	}
	return d
}

func displayName(loc model.ResolvedLocation) string {
	if loc.Name != "" {
		return loc.Name
	}
	return loc.Candidate.RawName
}

// popup renders the marker summary as escaped HTML
func popup(loc model.ResolvedLocation, day, n int) string {
	root := element(atom.Div, "class", "itinmap-popup")

	title := element(atom.Strong)
	title.AppendChild(text(displayName(loc)))
	root.AppendChild(title)

	if loc.Address != "" {
		root.AppendChild(element(atom.Br))
		root.AppendChild(text(loc.Address))
	}

	root.AppendChild(element(atom.Br))
	label := element(atom.Em)
	label.AppendChild(text(fmt.Sprintf("Day %d, stop %d", day, n)))
	root.AppendChild(label)

	if loc.Candidate.SourceLine != "" {
		p := element(atom.P)
		p.AppendChild(text(loc.Candidate.SourceLine))
		root.AppendChild(p)
	}

	if loc.ImageURL != "" {
		root.AppendChild(element(atom.Img, "src", loc.ImageURL, "alt", displayName(loc), "width", "220", "loading", "lazy"))
	}

	if loc.Candidate.Category == model.CategoryHotel {
		root.AppendChild(element(atom.Br))
		a := element(atom.A, "href", model.BookingURL(displayName(loc)), "target", "_blank", "rel", "noopener")
		a.AppendChild(text("Find booking"))
		root.AppendChild(a)
	}

	return renderNode(root)
}

func (s *Synthesizer) markup(id string, center model.LatLng, routes []model.DayRoute) string {
	payload, err := json.Marshal(s.data(id, center, routes))
	if err != nil {
		// Only plain strings and finite floats go in; treat failure as an empty map
		payload = []byte("{}")
	}

	root := element(atom.Div, "class", "itinmap", "data-artifact", id)
	root.AppendChild(element(atom.Link, "rel", "stylesheet", "href", leafletCSS))

	style := element(atom.Style)
	style.AppendChild(text(markerCSS))
	root.AppendChild(style)

	root.AppendChild(element(atom.Div, "id", "itinmap-"+id, "style", "height:"+cssLength(s.cfg.Height)+";width:100%"))

	lib := element(atom.Script, "src", leafletJS)
	root.AppendChild(lib)

	script := element(atom.Script)
	script.AppendChild(text(strings.Replace(mapScript, "__DATA__", string(payload), 1)))
	root.AppendChild(script)

	return renderNode(root)
}

var cssLengthPattern = regexp.MustCompile(`^\d+(?:\.\d+)?(?:px|em|rem|vh|%)$`)

func cssLength(v string) string {
	if cssLengthPattern.MatchString(v) {
		return v
	}
	return "500px"
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

const markerCSS = `.itinmap-marker span{display:flex;align-items:center;justify-content:center;width:26px;height:26px;border-radius:50%;border:2px solid #fff;color:#fff;font:bold 13px sans-serif;box-shadow:0 1px 4px rgba(0,0,0,.4)}
.itinmap-popup img{display:block;margin-top:6px;max-width:220px;border-radius:4px}`

const mapScript = `(function () {
  var cfg = __DATA__;
  var map = L.map(cfg.element).setView([cfg.center.lat, cfg.center.lng], cfg.zoom);
  L.tileLayer(cfg.tiles, {attribution: cfg.attribution, maxZoom: 19}).addTo(map);
  var overlays = {};
  var bounds = [];
  cfg.days.forEach(function (day) {
    var layer = L.layerGroup();
    if (day.path && day.path.length > 1) {
      L.polyline(day.path, {color: day.color, weight: 4, opacity: 0.8}).addTo(layer);
    }
    day.stops.forEach(function (s) {
      var icon = L.divIcon({
        className: "itinmap-marker",
        html: '<span style="background:' + day.color + '">' + s.n + "</span>",
        iconSize: [30, 30],
        iconAnchor: [15, 15]
      });
      L.marker([s.lat, s.lng], {icon: icon, title: s.title}).bindPopup(s.popup).addTo(layer);
      bounds.push([s.lat, s.lng]);
    });
    layer.addTo(map);
    overlays['<span style="color:' + day.color + '">' + day.label + "</span>"] = layer;
  });
  L.control.layers(null, overlays, {collapsed: false}).addTo(map);
  if (bounds.length > 1) {
    map.fitBounds(bounds, {padding: [24, 24]});
  }
})();`
