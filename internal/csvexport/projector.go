package csvexport

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"

	"github.com/sstent/garminexport/internal/activity"
	"github.com/sstent/garminexport/internal/convert"
	"github.com/sstent/garminexport/internal/properties"
)

const summaryDTO = "summaryDTO"

// Extract holds the values derived while processing an activity that are not
// read straight from its JSON.
type Extract struct {
	StartTime       time.Time
	EndTime         time.Time
	ElapsedDuration float64
	ElapsedSeconds  int64
	Device          string
	Gear            string
}

// TypeNames are the display names for activity and event type keys.
type TypeNames struct {
	Activity properties.Properties
	Event    properties.Properties
}

// Projector turns a merged activity into one CSV row.
type Projector struct {
	filter      *Filter
	names       TypeNames
	activityURL string
	logger      *log.Logger
}

// NewProjector creates a Projector. activityURL is the web page prefix an
// activity id is appended to for the url column.
func NewProjector(f *Filter, names TypeNames, activityURL string, logger *log.Logger) *Projector {
	if logger == nil {
		logger = log.Default()
	}
	return &Projector{filter: f, names: names, activityURL: strings.TrimRight(activityURL, "/"), logger: logger}
}

// Write projects summary, detail and ext onto the template and appends the row.
func (p *Projector) Write(ext Extract, summary, detail activity.Record) error {
	p.project(ext, summary, detail)
	return p.filter.WriteRow()
}

func (p *Projector) project(ext Extract, a, detail activity.Record) {
	set := p.filter.SetColumn
	sd := detail.Sub(summaryDTO)

	typeID, parentTypeID := 4, 4
	if activity.Present("activityType", a) {
		at := a.Sub("activityType")
		typeID, _ = at.Int("typeId")
		parentTypeID, _ = at.Int("parentTypeId")
	}
	parentTypeKey, known := convert.ParentTypeNames[parentTypeID]
	if !known {
		p.logger.Warn("Unknown parent type", "parentTypeId", parentTypeID)
	}

	id := a.String("activityId")
	set("id", id)
	set("url", p.activityURL+"/"+id)
	set("activityName", text(a, "activityName"))
	set("description", text(a, "description"))
	if !ext.StartTime.IsZero() {
		set("startTimeIso", convert.ISO(ext.StartTime))
		set("startTime1123", convert.RFC1123ish(ext.StartTime))
	}
	set("startTimeMillis", text(a, "beginTimestamp"))
	set("startTimeRaw", text(sd, "startTimeLocal"))
	if !ext.EndTime.IsZero() {
		set("endTimeIso", convert.ISO(ext.EndTime))
		set("endTime1123", convert.RFC1123ish(ext.EndTime))
	}
	if begin, ok := number(a, "beginTimestamp"); ok {
		set("endTimeMillis", strconv.FormatInt(int64(begin)+ext.ElapsedSeconds*1000, 10))
	}

	if d, ok := number(a, "duration"); ok {
		set("durationRaw", convert.Round(d, 3))
		set("duration", convert.HHMMSS(math.RoundToEven(d)))
	}
	if ext.ElapsedDuration != 0 {
		set("elapsedDurationRaw", convert.Round(ext.ElapsedDuration, 3))
		set("elapsedDuration", convert.HHMMSS(math.RoundToEven(ext.ElapsedDuration)))
	}
	if d, ok := number(sd, "movingDuration"); ok {
		set("movingDurationRaw", convert.Round(d, 3))
		set("movingDuration", convert.HHMMSS(math.RoundToEven(d)))
	}
	if d, ok := number(a, "distance"); ok {
		set("distanceRaw", convert.Kilometers(d, 5))
	}

	if v, ok := number(sd, "averageSpeed"); ok {
		set("averageSpeedRaw", convert.KmhFromMps(v))
	}
	if v, ok := number(a, "averageSpeed"); ok {
		set("averageSpeedPaceRaw", convert.Trunc6(convert.PaceOrSpeedRaw(typeID, parentTypeID, v)))
		set("averageSpeedPace", convert.PaceOrSpeedFormatted(typeID, parentTypeID, v))
	}
	p.speedColumns("averageMovingSpeed", sd, typeID, parentTypeID)
	p.speedColumns("maxSpeed", sd, typeID, parentTypeID)

	corrected := activity.Truthy(a.Get("elevationCorrected"))
	for _, field := range []string{"elevationLoss", "elevationGain", "minElevation", "maxElevation"} {
		v, ok := number(sd, field)
		if !ok {
			continue
		}
		value := convert.Round(v, 2)
		set(field, value)
		if corrected {
			set(field+"Corr", value)
		} else {
			set(field+"Uncorr", value)
		}
	}
	set("elevationCorrected", strconv.FormatBool(corrected))

	set("maxHRRaw", text(sd, "maxHR"))
	set("maxHR", whole(a, "maxHR"))
	set("averageHRRaw", text(sd, "averageHR"))
	set("averageHR", whole(a, "averageHR"))
	set("caloriesRaw", text(sd, "calories"))
	set("calories", whole(sd, "calories"))
	set("vo2max", text(a, "vO2MaxValue"))
	set("aerobicEffect", rounded(sd, "trainingEffect", 2))
	set("anaerobicEffect", rounded(sd, "anaerobicTrainingEffect", 2))
	set("averageRunCadence", rounded(sd, "averageRunCadence", 2))
	set("maxRunCadence", text(sd, "maxRunCadence"))
	set("strideLength", rounded(sd, "strideLength", 2))
	set("steps", text(a, "steps"))
	set("averageCadence", text(a, "averageBikingCadenceInRevPerMinute"))
	set("maxCadence", text(a, "maxBikingCadenceInRevPerMinute"))
	set("strokes", text(a, "strokes"))
	set("averageTemperature", text(sd, "averageTemperature"))
	set("minTemperature", text(sd, "minTemperature"))
	set("maxTemperature", text(sd, "maxTemperature"))

	set("device", ext.Device)
	set("gear", ext.Gear)

	if at := a.Sub("activityType"); activity.Present("typeKey", at) {
		key := at.String("typeKey")
		set("activityTypeKey", title(key))
		set("activityType", p.names.Activity.ValueOrKey("activity_type_"+key))
	}
	if known {
		set("activityParent", p.names.Activity.ValueOrKey("activity_type_"+parentTypeKey))
	}
	if et := a.Sub("eventType"); activity.Present("typeKey", et) {
		key := et.String("typeKey")
		set("eventTypeKey", title(key))
		set("eventType", p.names.Event.ValueOrKey(key))
	}

	set("privacy", text(detail.Sub("accessControlRuleDTO"), "typeKey"))
	set("fileFormat", text(detail.Sub("metadataDTO").Sub("fileFormat"), "formatKey"))
	set("tz", text(detail.Sub("timeZoneUnitDTO"), "timeZone"))
	if !ext.StartTime.IsZero() {
		iso := convert.ISO(ext.StartTime)
		set("tzOffset", iso[len(iso)-6:])
	}
	set("locationName", text(detail, "locationName"))

	for _, field := range []string{"startLatitude", "startLongitude", "endLatitude", "endLongitude"} {
		v := activity.Resolve(field, a, detail, summaryDTO)
		if !activity.Truthy(v) {
			continue
		}
		set(field+"Raw", activity.Text(v))
		if f, ok := activity.Float(v); ok {
			set(field, convert.Trunc6(f))
		}
	}
}

func (p *Projector) speedColumns(field string, sd activity.Record, typeID, parentTypeID int) {
	v, ok := number(sd, field)
	if !ok {
		return
	}
	p.filter.SetColumn(field+"Raw", convert.KmhFromMps(v))
	p.filter.SetColumn(field+"PaceRaw", convert.Trunc6(convert.PaceOrSpeedRaw(typeID, parentTypeID, v)))
	p.filter.SetColumn(field+"Pace", convert.PaceOrSpeedFormatted(typeID, parentTypeID, v))
}

// text returns r[field] as text when present, "" otherwise.
func text(r activity.Record, field string) string {
	if activity.AbsentOrNull(field, r) {
		return ""
	}
	return r.String(field)
}

func number(r activity.Record, field string) (float64, bool) {
	if activity.AbsentOrNull(field, r) {
		return 0, false
	}
	return r.Float(field)
}

func rounded(r activity.Record, field string, places int) string {
	v, ok := number(r, field)
	if !ok {
		return ""
	}
	return convert.Round(v, places)
}

func whole(r activity.Record, field string) string {
	v, ok := number(r, field)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}

// title upper-cases the first letter of every letter run, like "street_running" -> "Street_Running".
func title(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
