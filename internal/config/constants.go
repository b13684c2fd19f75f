package config

const SourceFileExt = ".wave"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".wave", ".wvl"}

// IRVersion is the version of the closed node-kind enum in the emitted IR.
// Bump whenever a kind is added, removed, or renumbered.
const IRVersion = 1

// MaxRecursionDepth bounds parser recursion.
const MaxRecursionDepth = 200

// MaxChannelWidth bounds the channel counts declared in shape literals;
// derived widths (merges, external ports) are not checked against it.
const MaxChannelWidth = 1 << 16

// FoldPrecision is the mantissa precision, in bits, used for extended
// floating-point constant folding before the single rounding into the
// declared scalar type.
const FoldPrecision = 256

// ProjectFileName is the per-project configuration file read from the
// directory of the source file upward.
const ProjectFileName = "waveling.yaml"
