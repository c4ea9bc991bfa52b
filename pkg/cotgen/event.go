package cotgen

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"

	types "github.com/stronnag/kml2cot/pkg/types"
)

// Header is the declaration TAK clients write ahead of every event.
const Header = "<?xml version='1.0' encoding='UTF-8' standalone='yes'?>\n"

const (
	CotVersion   = "2.0"
	UnknownError = "9999999.0"
	TimeFormat   = "2006-01-02T15:04:05.000Z"
	RouteType    = "b-m-r"
	WaypointType = "b-m-p-w"
	CheckType    = "b-m-p-c"
)

type Event struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	UID     string   `xml:"uid,attr"`
	Type    string   `xml:"type,attr"`
	Time    string   `xml:"time,attr"`
	Start   string   `xml:"start,attr"`
	Stale   string   `xml:"stale,attr"`
	How     string   `xml:"how,attr"`
	Point   Point    `xml:"point"`
	Detail  Detail   `xml:"detail"`
}

type Point struct {
	Lat string `xml:"lat,attr"`
	Lon string `xml:"lon,attr"`
	Hae string `xml:"hae,attr"`
	Ce  string `xml:"ce,attr"`
	Le  string `xml:"le,attr"`
}

type Value struct {
	Value string `xml:"value,attr"`
}

type Link struct {
	UID      string `xml:"uid,attr,omitempty"`
	Type     string `xml:"type,attr,omitempty"`
	Callsign string `xml:"callsign,attr,omitempty"`
	Point    string `xml:"point,attr"`
	Relation string `xml:"relation,attr,omitempty"`
}

type LinkAttr struct {
	PlanningMethod string `xml:"planningmethod,attr"`
	Color          string `xml:"color,attr"`
	Method         string `xml:"method,attr"`
	Prefix         string `xml:"prefix,attr"`
	Type           string `xml:"type,attr"`
	Stroke         string `xml:"stroke,attr"`
	Direction      string `xml:"direction,attr"`
	RouteType      string `xml:"routetype,attr"`
	Order          string `xml:"order,attr"`
}

type Contact struct {
	Callsign string `xml:"callsign,attr"`
}

type Status struct {
	Readiness string `xml:"readiness,attr"`
}

type Colour struct {
	ARGB string `xml:"argb,attr"`
}

type Precision struct {
	AltSrc string `xml:"altsrc,attr"`
}

type UserIcon struct {
	IconSetPath string `xml:"iconsetpath,attr"`
}

type Detail struct {
	Status       *Status    `xml:"status"`
	Links        []Link     `xml:"link"`
	LinkAttr     *LinkAttr  `xml:"link_attr"`
	StrokeColor  *Value     `xml:"strokeColor"`
	StrokeWeight *Value     `xml:"strokeWeight"`
	FillColor    *Value     `xml:"fillColor"`
	Contact      Contact    `xml:"contact"`
	Remarks      string     `xml:"remarks"`
	Archive      *struct{}  `xml:"archive"`
	LabelsOn     *Value     `xml:"labels_on"`
	Color        *Colour    `xml:"color"`
	Precision    *Precision `xml:"precisionlocation"`
	UserIcon     *UserIcon  `xml:"usericon"`
}

func routeAttrs() *LinkAttr {
	return &LinkAttr{
		PlanningMethod: "Infil",
		Color:          "-1",
		Method:         "Driving",
		Prefix:         "CP",
		Type:           "Vehicle",
		Stroke:         "3",
		Direction:      "Infil",
		RouteType:      "Primary",
		Order:          "Ascending Check Points",
	}
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// fmtWeight keeps one decimal for whole numbers, "4.0" rather than "4".
func fmtWeight(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return fmtFloat(v)
}

func fmtARGB(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

func linkPoint(c types.Coord) string {
	return fmtFloat(c.Lat) + "," + fmtFloat(c.Lon) + "," + fmtFloat(c.Alt)
}

func pointOf(c types.Coord) Point {
	return Point{Lat: fmtFloat(c.Lat), Lon: fmtFloat(c.Lon), Hae: fmtFloat(c.Alt), Ce: UnknownError, Le: UnknownError}
}

// Marshal serialises the event, tab indented, after the CoT declaration.
func (ev *Event) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "\t")
	if err := enc.Encode(ev); err != nil {
		return nil, fmt.Errorf("encode event %s: %w", ev.UID, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ReadEvent decodes a CoT document.
func ReadEvent(data []byte) (*Event, error) {
	var ev Event
	if err := xml.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.UID == "" {
		return nil, fmt.Errorf("event has no uid")
	}
	return &ev, nil
}
