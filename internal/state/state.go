// Package state holds the node's authoritative runtime state: one flat
// value record per concern, replaced wholesale, never partially mutated.
// Single-writer discipline: the sampling loop owns Sample and Prediction,
// the link manager owns Link.
package state

// Labels the prediction fields carry before (or instead of) a real result.
const (
	LabelWaiting = "Waiting..."
	LabelNoNPK   = "No NPK"
)

// SoilSample is one probe read. Humidity, temperature and pH are
// tenths-scaled; conductivity is µS/cm; N/P/K are mg/kg. All fields are
// zero when no valid read occurred.
type SoilSample struct {
	Humidity     uint16
	Temperature  uint16
	Conductivity uint16
	PH           uint16
	Nitrogen     uint16
	Phosphorus   uint16
	Potassium    uint16
}

// NoNPK reports whether all three macronutrient readings are zero, which
// is treated as "no NPK probe attached" rather than a real measurement.
func (s SoilSample) NoNPK() bool {
	return s.Nitrogen == 0 && s.Phosphorus == 0 && s.Potassium == 0
}

// Prediction is the last known remote classification result. Confidences
// are percentages and only meaningful when the matching label is not a
// sentinel.
type Prediction struct {
	Crop                string
	CropConfidence      float64
	Fertility           string
	FertilityConfidence float64
	Advice              []string
}

// NewPrediction returns the startup placeholder prediction.
func NewPrediction() Prediction {
	return Prediction{Crop: LabelWaiting, Fertility: LabelWaiting}
}

// CropKnown reports whether Crop holds a real classification.
func (p Prediction) CropKnown() bool {
	return p.Crop != LabelWaiting && p.Crop != LabelNoNPK
}

// FertilityKnown reports whether Fertility holds a real classification.
func (p Prediction) FertilityKnown() bool {
	return p.Fertility != LabelWaiting && p.Fertility != LabelNoNPK
}

// Link is the wireless uplink state. Addr is the assigned address while
// up, empty otherwise.
type Link struct {
	Up   bool
	Addr string
}

// Node bundles the shared state passed into each component entry point.
type Node struct {
	Sample     SoilSample
	Prediction Prediction
	Link       Link
}

// New returns node state with placeholder prediction labels.
func New() *Node {
	return &Node{Prediction: NewPrediction()}
}
