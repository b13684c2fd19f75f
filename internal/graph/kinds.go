package graph

// Kind identifies what a node does. The enum is closed and versioned: the
// numeric values are part of the emitted IR contract (config.IRVersion) and
// must never be reordered.
type Kind uint16

const (
	KindConst Kind = iota
	KindExternalInput
	KindExternalOutput
	KindProperty
	KindStageOutput

	KindAdd
	KindSub
	KindMul
	KindDiv
	KindMod
	KindShl
	KindShr
	KindBitAnd
	KindBitOr
	KindBitXor

	KindEq
	KindNe
	KindLt
	KindLe
	KindGt
	KindGe

	KindNeg
	KindNot
	KindBitNot

	KindCast
	KindBroadcast
	KindTruncate
	KindMerge
	KindSplit
	KindSlice
	KindSelect

	KindMath
	KindBiquad
	KindXoroshiro

	KindCell
	KindDelWrite
	KindDelRead

	KindSr
	KindClock
)

// RateRule says how a kind derives its output rate.
type RateRule uint8

const (
	RateFromInputs RateRule = iota // max of input rates
	RateAlwaysConstant
	RateAlwaysSample
	RateFromDecl // properties: per external declaration
)

// PinSpec is the kind-level metadata for one pin: which names exist and
// which indices they alias. Pins stay addressable both ways.
type PinSpec struct {
	Name     string // empty for purely numbered pins
	Required bool
}

// KindSpec describes a node kind's fixed bundle shape. Variadic kinds get
// their actual pin count at construction time.
type KindSpec struct {
	Name       string
	In         []PinSpec
	Out        []PinSpec
	VariadicIn bool // merge: any number of inputs
	VarOut     bool // split: output count from attributes
	Rate       RateRule
}

var kindSpecs = map[Kind]KindSpec{
	KindConst:          {Name: "const", Out: []PinSpec{{}}, Rate: RateAlwaysConstant},
	KindExternalInput:  {Name: "external_input", Out: []PinSpec{{}}, Rate: RateAlwaysSample},
	KindExternalOutput: {Name: "external_output", In: []PinSpec{{Required: true}}},
	KindProperty:       {Name: "property", Out: []PinSpec{{}}, Rate: RateFromDecl},
	KindStageOutput:    {Name: "stage_output", In: []PinSpec{{Name: "in", Required: true}}, Out: []PinSpec{{Name: "out"}}, Rate: RateAlwaysSample},

	KindAdd:    {Name: "add", In: binaryIns, Out: singleOut},
	KindSub:    {Name: "sub", In: binaryIns, Out: singleOut},
	KindMul:    {Name: "mul", In: binaryIns, Out: singleOut},
	KindDiv:    {Name: "div", In: binaryIns, Out: singleOut},
	KindMod:    {Name: "mod", In: binaryIns, Out: singleOut},
	KindShl:    {Name: "shl", In: binaryIns, Out: singleOut},
	KindShr:    {Name: "shr", In: binaryIns, Out: singleOut},
	KindBitAnd: {Name: "and", In: binaryIns, Out: singleOut},
	KindBitOr:  {Name: "or", In: binaryIns, Out: singleOut},
	KindBitXor: {Name: "xor", In: binaryIns, Out: singleOut},

	KindEq: {Name: "eq", In: binaryIns, Out: singleOut},
	KindNe: {Name: "ne", In: binaryIns, Out: singleOut},
	KindLt: {Name: "lt", In: binaryIns, Out: singleOut},
	KindLe: {Name: "le", In: binaryIns, Out: singleOut},
	KindGt: {Name: "gt", In: binaryIns, Out: singleOut},
	KindGe: {Name: "ge", In: binaryIns, Out: singleOut},

	KindNeg:    {Name: "neg", In: unaryIns, Out: singleOut},
	KindNot:    {Name: "not", In: unaryIns, Out: singleOut},
	KindBitNot: {Name: "bitnot", In: unaryIns, Out: singleOut},

	KindCast:      {Name: "cast", In: unaryIns, Out: singleOut},
	KindBroadcast: {Name: "broadcast", In: unaryIns, Out: singleOut},
	KindTruncate:  {Name: "truncate", In: unaryIns, Out: singleOut},
	KindMerge:     {Name: "merge", Out: singleOut, VariadicIn: true},
	KindSplit:     {Name: "split", In: unaryIns, VarOut: true},
	KindSlice:     {Name: "slice", In: unaryIns, Out: singleOut},
	KindSelect: {Name: "select", In: []PinSpec{
		{Name: "cond", Required: true},
		{Name: "a", Required: true},
		{Name: "b", Required: true},
	}, Out: singleOut},

	KindMath: {Name: "math", Out: singleOut, VariadicIn: true},
	KindBiquad: {Name: "biquad", In: []PinSpec{
		{Name: "input", Required: true},
		{Name: "frequency", Required: true},
		{Name: "q", Required: true},
	}, Out: []PinSpec{{Name: "out"}}},
	KindXoroshiro: {Name: "xoroshiro", Out: singleOut, Rate: RateAlwaysSample},

	// The cell's end→start dependency is the permitted back-edge: start at
	// sample t equals end at t−delay, 0 before the first committed sample.
	KindCell: {Name: "cell", In: []PinSpec{{Name: "end", Required: true}}, Out: []PinSpec{{Name: "start"}}, Rate: RateAlwaysSample},

	KindDelWrite: {Name: "delwrite", In: []PinSpec{{Name: "value", Required: true}}},
	// delread(b, 0) is only guaranteed to observe this sample's delwrite
	// when a data dependency orders the write before the read; otherwise
	// the value read is the previous sample's.
	KindDelRead: {Name: "delread", In: []PinSpec{{Name: "delay", Required: true}}, Out: singleOut, Rate: RateAlwaysSample},

	KindSr:    {Name: "sr", Out: singleOut, Rate: RateAlwaysConstant},
	KindClock: {Name: "clock", Out: singleOut, Rate: RateAlwaysSample},
}

var (
	unaryIns  = []PinSpec{{Required: true}}
	binaryIns = []PinSpec{{Required: true}, {Required: true}}
	singleOut = []PinSpec{{}}
)

// Spec returns the kind's bundle metadata.
func (k Kind) Spec() KindSpec {
	return kindSpecs[k]
}

func (k Kind) String() string {
	return kindSpecs[k].Name
}

// Attribute keys. Attribute values are int64, float64 or string, except
// split's "widths" attribute, which holds a []int64.
const (
	AttrFn      = "fn"       // math: function name (sin, pow, clamp, ...)
	AttrMode    = "mode"     // biquad: lowpass|highpass|bandpass|notch
	AttrCastTo  = "cast_to"  // cast: target scalar name
	AttrPort    = "port"     // external_input/output: port index (int64)
	AttrProp    = "property" // property: property index (int64)
	AttrBuffer  = "buffer"   // delread/delwrite: buffer index (int64)
	AttrClamp   = "clamp"    // delread: delay clamp policy ("capacity-1")
	AttrSeed    = "seed"     // xoroshiro: seed slot (int64)
	AttrDelay   = "delay"    // cell: delay in samples (int64)
	AttrOffset  = "offset"   // slice: first channel (int64)
	AttrEnd     = "end"      // slice: one-past-last channel (int64)
	AttrStage   = "stage"    // stage_output: output name within the stage
	AttrDeclPin = "decl_pin" // stage_output: declared output index (int64)
)
