package binlog

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// WKB geometry type codes.
//
// https://www.ogc.org/standard/sfa/
const (
	wkbPoint              = 1
	wkbLineString         = 2
	wkbPolygon            = 3
	wkbMultiPoint         = 4
	wkbMultiLineString    = 5
	wkbMultiPolygon       = 6
	wkbGeometryCollection = 7
)

// Geometry represents a value of TypeGeometry: the raw storage image
// (4-byte SRID then WKB) plus the parsed shape when the image is valid
// WKB. Shape is nil when parsing failed; Raw is always set.
type Geometry struct {
	Raw   []byte
	SRID  uint32
	Shape GeometryShape
}

// GeometryShape is one of Point, LineString, Polygon, MultiPoint,
// MultiLineString, MultiPolygon or GeometryCollection.
type GeometryShape interface {
	GeometryType() string
	WKT() string
}

type Point struct {
	X, Y float64
}

func (p Point) GeometryType() string { return "POINT" }

func (p Point) WKT() string {
	return fmt.Sprintf("POINT(%s)", wktCoord(p))
}

type LineString struct {
	Points []Point
}

func (l LineString) GeometryType() string { return "LINESTRING" }

func (l LineString) WKT() string {
	return "LINESTRING" + wktPointList(l.Points)
}

// Polygon is an outer ring followed by zero or more holes.
type Polygon struct {
	Rings []LineString
}

func (p Polygon) GeometryType() string { return "POLYGON" }

func (p Polygon) WKT() string {
	parts := make([]string, len(p.Rings))
	for i, r := range p.Rings {
		parts[i] = wktPointList(r.Points)
	}
	return "POLYGON(" + strings.Join(parts, ",") + ")"
}

type MultiPoint struct {
	Points []Point
}

func (m MultiPoint) GeometryType() string { return "MULTIPOINT" }

func (m MultiPoint) WKT() string {
	return "MULTIPOINT" + wktPointList(m.Points)
}

type MultiLineString struct {
	Lines []LineString
}

func (m MultiLineString) GeometryType() string { return "MULTILINESTRING" }

func (m MultiLineString) WKT() string {
	parts := make([]string, len(m.Lines))
	for i, l := range m.Lines {
		parts[i] = wktPointList(l.Points)
	}
	return "MULTILINESTRING(" + strings.Join(parts, ",") + ")"
}

type MultiPolygon struct {
	Polygons []Polygon
}

func (m MultiPolygon) GeometryType() string { return "MULTIPOLYGON" }

func (m MultiPolygon) WKT() string {
	parts := make([]string, len(m.Polygons))
	for i, p := range m.Polygons {
		wkt := p.WKT()
		parts[i] = wkt[len("POLYGON"):]
	}
	return "MULTIPOLYGON(" + strings.Join(parts, ",") + ")"
}

type GeometryCollection struct {
	Shapes []GeometryShape
}

func (g GeometryCollection) GeometryType() string { return "GEOMETRYCOLLECTION" }

func (g GeometryCollection) WKT() string {
	parts := make([]string, len(g.Shapes))
	for i, s := range g.Shapes {
		parts[i] = s.WKT()
	}
	return "GEOMETRYCOLLECTION(" + strings.Join(parts, ",") + ")"
}

// BoundingBox is the axis-aligned extent of a shape.
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b *BoundingBox) extend(p Point) {
	b.MinX = math.Min(b.MinX, p.X)
	b.MinY = math.Min(b.MinY, p.Y)
	b.MaxX = math.Max(b.MaxX, p.X)
	b.MaxY = math.Max(b.MaxY, p.Y)
}

// Bounds computes the bounding box of any shape; ok is false for an
// empty shape.
func Bounds(s GeometryShape) (box BoundingBox, ok bool) {
	box = BoundingBox{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	var walk func(GeometryShape)
	walk = func(s GeometryShape) {
		switch v := s.(type) {
		case Point:
			box.extend(v)
			ok = true
		case LineString:
			for _, p := range v.Points {
				box.extend(p)
				ok = true
			}
		case Polygon:
			for _, r := range v.Rings {
				walk(r)
			}
		case MultiPoint:
			for _, p := range v.Points {
				box.extend(p)
				ok = true
			}
		case MultiLineString:
			for _, l := range v.Lines {
				walk(l)
			}
		case MultiPolygon:
			for _, p := range v.Polygons {
				walk(p)
			}
		case GeometryCollection:
			for _, c := range v.Shapes {
				walk(c)
			}
		}
	}
	walk(s)
	return box, ok
}

// decodeGeometry parses the MySQL geometry storage image. A failed
// parse keeps the raw bytes and leaves Shape nil.
func decodeGeometry(buf []byte) Geometry {
	g := Geometry{Raw: buf}
	if len(buf) < 4 {
		return g
	}
	g.SRID = binary.LittleEndian.Uint32(buf)
	shape, rest, err := decodeWKB(buf[4:])
	if err != nil || len(rest) != 0 {
		return g
	}
	g.Shape = shape
	return g
}

type wkbReader struct {
	buf []byte
	ord binary.ByteOrder
}

func decodeWKB(buf []byte) (GeometryShape, []byte, error) {
	w := &wkbReader{buf: buf}
	shape, err := w.shape()
	return shape, w.buf, err
}

func (w *wkbReader) shape() (GeometryShape, error) {
	if len(w.buf) < 5 {
		return nil, ErrUnexpectedEOF.New()
	}
	switch w.buf[0] {
	case 0:
		w.ord = binary.BigEndian
	case 1:
		w.ord = binary.LittleEndian
	default:
		return nil, ErrMalformedValue.New(TypeGeometry, "invalid byte order")
	}
	typ := w.ord.Uint32(w.buf[1:])
	w.buf = w.buf[5:]
	switch typ {
	case wkbPoint:
		return w.point()
	case wkbLineString:
		return w.lineString()
	case wkbPolygon:
		return w.polygon()
	case wkbMultiPoint:
		n, err := w.count()
		if err != nil {
			return nil, err
		}
		m := MultiPoint{Points: make([]Point, n)}
		for i := range m.Points {
			s, err := w.shape()
			if err != nil {
				return nil, err
			}
			p, ok := s.(Point)
			if !ok {
				return nil, ErrMalformedValue.New(TypeGeometry, "multipoint member is not a point")
			}
			m.Points[i] = p
		}
		return m, nil
	case wkbMultiLineString:
		n, err := w.count()
		if err != nil {
			return nil, err
		}
		m := MultiLineString{Lines: make([]LineString, n)}
		for i := range m.Lines {
			s, err := w.shape()
			if err != nil {
				return nil, err
			}
			l, ok := s.(LineString)
			if !ok {
				return nil, ErrMalformedValue.New(TypeGeometry, "multilinestring member is not a linestring")
			}
			m.Lines[i] = l
		}
		return m, nil
	case wkbMultiPolygon:
		n, err := w.count()
		if err != nil {
			return nil, err
		}
		m := MultiPolygon{Polygons: make([]Polygon, n)}
		for i := range m.Polygons {
			s, err := w.shape()
			if err != nil {
				return nil, err
			}
			p, ok := s.(Polygon)
			if !ok {
				return nil, ErrMalformedValue.New(TypeGeometry, "multipolygon member is not a polygon")
			}
			m.Polygons[i] = p
		}
		return m, nil
	case wkbGeometryCollection:
		n, err := w.count()
		if err != nil {
			return nil, err
		}
		g := GeometryCollection{Shapes: make([]GeometryShape, n)}
		for i := range g.Shapes {
			s, err := w.shape()
			if err != nil {
				return nil, err
			}
			g.Shapes[i] = s
		}
		return g, nil
	}
	return nil, ErrMalformedValue.New(TypeGeometry, "unknown wkb type")
}

func (w *wkbReader) count() (uint32, error) {
	if len(w.buf) < 4 {
		return 0, ErrUnexpectedEOF.New()
	}
	n := w.ord.Uint32(w.buf)
	w.buf = w.buf[4:]
	return n, nil
}

func (w *wkbReader) point() (Point, error) {
	if len(w.buf) < 16 {
		return Point{}, ErrUnexpectedEOF.New()
	}
	p := Point{
		X: math.Float64frombits(w.ord.Uint64(w.buf)),
		Y: math.Float64frombits(w.ord.Uint64(w.buf[8:])),
	}
	w.buf = w.buf[16:]
	return p, nil
}

func (w *wkbReader) lineString() (LineString, error) {
	n, err := w.count()
	if err != nil {
		return LineString{}, err
	}
	l := LineString{Points: make([]Point, n)}
	for i := range l.Points {
		if l.Points[i], err = w.point(); err != nil {
			return LineString{}, err
		}
	}
	return l, nil
}

func (w *wkbReader) polygon() (Polygon, error) {
	n, err := w.count()
	if err != nil {
		return Polygon{}, err
	}
	p := Polygon{Rings: make([]LineString, n)}
	for i := range p.Rings {
		if p.Rings[i], err = w.lineString(); err != nil {
			return Polygon{}, err
		}
	}
	return p, nil
}

func wktCoord(p Point) string {
	return trimFloat(p.X) + " " + trimFloat(p.Y)
}

func wktPointList(points []Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = wktCoord(p)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func trimFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", f), "0"), ".")
}
