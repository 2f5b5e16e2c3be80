// pkg/core/poi.go
package core

// POI is a point of interest the camera can track.
type POI struct {
	GeoPoint
}

// POIRef is a handle into a mission's POITable. NoPOI means no reference.
type POIRef int

// NoPOI is the zero POIRef.
const NoPOI POIRef = 0

// poiKey is the canonical identity of a POI.
type poiKey struct {
	lat, lon, alt float64
	mode          AltMode
}

// POITable owns the deduplicated POIs of a mission.
// Handles are 1-based so the zero value of POIRef stays "no POI".
type POITable struct {
	items []POI
	index map[poiKey]POIRef
}

// NewPOITable creates an empty table.
func NewPOITable() *POITable {
	return &POITable{index: make(map[poiKey]POIRef)}
}

// Intern returns the handle for p, adding it when no POI with the same
// coordinates and altitude mode exists yet.
func (t *POITable) Intern(p POI) POIRef {
	if t.index == nil {
		t.index = make(map[poiKey]POIRef)
	}
	k := poiKey{lat: p.Latitude, lon: p.Longitude, alt: p.Altitude, mode: p.AltMode}
	if ref, ok := t.index[k]; ok {
		return ref
	}
	t.items = append(t.items, p)
	ref := POIRef(len(t.items))
	t.index[k] = ref
	return ref
}

// Get resolves a handle.
func (t *POITable) Get(ref POIRef) (POI, bool) {
	if t == nil || ref <= 0 || int(ref) > len(t.items) {
		return POI{}, false
	}
	return t.items[ref-1], true
}

// Len returns the number of distinct POIs.
func (t *POITable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.items)
}

// All returns the POIs in insertion order. The slice is owned by the table.
func (t *POITable) All() []POI {
	if t == nil {
		return nil
	}
	return t.items
}

// Update applies fn to every POI in place. Used once by altitude correction.
func (t *POITable) Update(fn func(ref POIRef, p *POI)) {
	if t == nil {
		return
	}
	for i := range t.items {
		fn(POIRef(i+1), &t.items[i])
	}
}
