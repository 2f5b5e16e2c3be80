package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/beevik/etree"
	"github.com/virtualmission/vlm/internal/geo"
	"github.com/virtualmission/vlm/pkg/core"
)

const (
	kmlNamespace = "http://www.opengis.net/kml/2.2"
	gxNamespace  = "http://www.google.com/kml/ext/2.2"

	tourName = "Virtual Mission"

	wpIcon  = "http://maps.google.com/mapfiles/kml/paddle/wht-blank.png"
	poiIcon = "http://maps.google.com/mapfiles/kml/paddle/red-stars.png"

	wpBalloon = `
<h3>WayPoint $[Waypoint]</h3>
<table border="0" width="200">
<tr><td>Altitude (msl) <td>$[Altitude_Abs] m
<tr><td>Altitude (rtg) <td>$[Altitude_Gnd] m
<tr><td>Heading<td>$[Heading] degrees
<tr><td>Gimbal Tilt<td> $[Gimbal] degrees
</tr></table>
`
	poiBalloon = `
<h3>POI $[POI]</h3>
<table border="0" width="200">
<tr><td>Altitude (msl) <td>$[Altitude_Abs] m
<tr><td>Altitude (rtg) <td>$[Altitude_Gnd] m
</tr></table>
`
)

// HFOV converts a diagonal field of view to the horizontal one of a 4:3
// sensor behind an 18 mm equivalent lens. Degrees in and out.
func HFOV(dfov float64) float64 {
	return 2 * deg(math.Atan(18*math.Tan(rad(dfov)/2)*2/43.3))
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }

// Input is everything a flythrough document is built from.
type Input struct {
	Name      string
	Waypoints []core.Waypoint
	POIs      *core.POITable
	// Path is the smoothed, oriented point sequence.
	Path []core.Waypoint
}

// Renderer builds KML flythrough documents.
type Renderer struct {
	hfov   float64
	indent int
}

// NewRenderer creates a renderer for a camera with the given horizontal FOV.
func NewRenderer(hfov float64) *Renderer {
	return &Renderer{hfov: hfov, indent: 2}
}

// Render returns the KML document as bytes.
func (r *Renderer) Render(in Input) ([]byte, error) {
	doc := r.build(in)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize kml: %w", err)
	}
	return out, nil
}

func (r *Renderer) build(in Input) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	kml := doc.CreateElement("kml")
	kml.CreateAttr("xmlns", kmlNamespace)
	kml.CreateAttr("xmlns:gx", gxNamespace)

	d := kml.CreateElement("Document")
	text(d, "name", in.Name)

	r.lookAt(d, Overview(in.Waypoints, r.hfov))

	tour := d.CreateElement("gx:Tour")
	text(tour, "name", tourName)
	playlist := tour.CreateElement("gx:Playlist")
	for _, p := range in.Path {
		fly := playlist.CreateElement("gx:FlyTo")
		text(fly, "gx:duration", num(p.LegTime))
		text(fly, "gx:flyToMode", "smooth")
		r.camera(fly, "Camera", p)

		wait := playlist.CreateElement("gx:Wait")
		text(wait, "gx:duration", "0")
	}

	lineStyle(d, "wpstyle", "FF00FFFF", "4C00FFFF")
	lineStyle(d, "smoothstyle", "FFFF00FF", "4CFF00FF")
	iconStyle(d, "wpmarkers", wpIcon, wpBalloon)
	iconStyle(d, "poimarkers", poiIcon, poiBalloon)

	diag := d.CreateElement("Folder")
	text(diag, "name", "Diagnostics")
	pathPlacemark(diag, "WayPoint Path", 0, "#wpstyle", points(in.Waypoints))

	wfolder := folder(diag, "WayPoint Markers", 1)
	for _, wp := range in.Waypoints {
		pm := placemark(wfolder, fmt.Sprintf("WP%02d", wp.Num), "#wpmarkers")
		extendedData(pm,
			"Waypoint", strconv.Itoa(wp.Num),
			"Altitude_Abs", rounded(wp.Altitude),
			"Altitude_Gnd", rounded(wp.AltitudeAboveGround()),
			"Heading", rounded(wp.Heading),
			"Gimbal", rounded(wp.GimbalTilt-core.TiltOffset),
		)
		point(pm, wp.GeoPoint)
	}

	pfolder := folder(diag, "POI Markers", 1)
	for i, poi := range in.POIs.All() {
		n := i + 1
		pm := placemark(pfolder, fmt.Sprintf("POI%02d", n), "#poimarkers")
		extendedData(pm,
			"POI", strconv.Itoa(n),
			"Altitude_Abs", rounded(poi.Altitude),
			"Altitude_Gnd", rounded(poi.AltitudeAboveGround()),
		)
		point(pm, poi.GeoPoint)
	}

	vfolder := folder(diag, "WayPoint Views", 0)
	for _, p := range in.Path {
		if !p.IsAnchor() {
			continue
		}
		view := vfolder.CreateElement("Document")
		text(view, "name", fmt.Sprintf("WP%03d", p.Num))
		text(view, "visibility", "0")
		r.camera(view, "Camera", p)
	}

	pathPlacemark(diag, "Smooth Flight Path", 1, "#smoothstyle", points(in.Path))

	doc.Indent(r.indent)
	return doc
}

func (r *Renderer) camera(parent *etree.Element, tag string, p core.Waypoint) {
	c := parent.CreateElement(tag)
	text(c, "latitude", num(p.Latitude))
	text(c, "longitude", num(p.Longitude))
	text(c, "altitude", num(p.Altitude))
	text(c, "heading", num(p.Heading))
	text(c, "tilt", num(p.GimbalTilt))
	text(c, "roll", "0")
	text(c, "altitudeMode", "absolute")
	text(c, "gx:horizFov", num(r.hfov))
}

func (r *Renderer) lookAt(parent *etree.Element, la LookAt) {
	l := parent.CreateElement("LookAt")
	text(l, "latitude", num(la.Latitude))
	text(l, "longitude", num(la.Longitude))
	text(l, "altitude", num(la.Altitude))
	text(l, "heading", "0")
	text(l, "tilt", num(la.Tilt))
	text(l, "range", num(la.Range))
	text(l, "altitudeMode", "absolute")
	text(l, "gx:horizFov", num(r.hfov))
}

func text(parent *etree.Element, tag, value string) *etree.Element {
	e := parent.CreateElement(tag)
	e.SetText(value)
	return e
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// rounded formats a display value to whole units, rounding half to even.
func rounded(v float64) string {
	r := math.RoundToEven(v)
	if r == 0 {
		// avoid "-0"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', 0, 64)
}

func points(wps []core.Waypoint) []core.GeoPoint {
	out := make([]core.GeoPoint, len(wps))
	for i, w := range wps {
		out[i] = w.GeoPoint
	}
	return out
}

func folder(parent *etree.Element, name string, visibility int) *etree.Element {
	f := parent.CreateElement("Folder")
	text(f, "name", name)
	text(f, "visibility", strconv.Itoa(visibility))
	return f
}

func placemark(parent *etree.Element, name, style string) *etree.Element {
	pm := parent.CreateElement("Placemark")
	text(pm, "name", name)
	text(pm, "visibility", "1")
	text(pm, "styleUrl", style)
	return pm
}

func extendedData(pm *etree.Element, kv ...string) {
	ed := pm.CreateElement("ExtendedData")
	for i := 0; i+1 < len(kv); i += 2 {
		data := ed.CreateElement("Data")
		data.CreateAttr("name", kv[i])
		text(data, "value", kv[i+1])
	}
}

func point(pm *etree.Element, p core.GeoPoint) {
	pt := pm.CreateElement("Point")
	text(pt, "altitudeMode", "absolute")
	text(pt, "extrude", "1")
	text(pt, "coordinates", geo.FormatCoordinates([]core.GeoPoint{p}))
}

func pathPlacemark(parent *etree.Element, name string, visibility int, style string, pts []core.GeoPoint) {
	pm := parent.CreateElement("Placemark")
	text(pm, "name", name)
	text(pm, "visibility", strconv.Itoa(visibility))
	text(pm, "styleUrl", style)
	ls := pm.CreateElement("LineString")
	text(ls, "extrude", "1")
	text(ls, "tessellate", "1")
	text(ls, "altitudeMode", "absolute")
	text(ls, "coordinates", geo.FormatCoordinates(pts))
}

func lineStyle(parent *etree.Element, id, line, poly string) {
	s := parent.CreateElement("Style")
	s.CreateAttr("id", id)
	ls := s.CreateElement("LineStyle")
	text(ls, "color", line)
	text(ls, "width", "2")
	ps := s.CreateElement("PolyStyle")
	text(ps, "color", poly)
}

func iconStyle(parent *etree.Element, id, href, balloon string) {
	s := parent.CreateElement("Style")
	s.CreateAttr("id", id)
	is := s.CreateElement("IconStyle")
	icon := is.CreateElement("Icon")
	text(icon, "href", href)
	bs := s.CreateElement("BalloonStyle")
	bs.CreateElement("text").CreateCData(balloon)
	text(bs, "bgColor", "ffffffbb")
}
