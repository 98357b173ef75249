// Package afni turns gear configuration into command lines for afni_proc.py
// and the older MEICA pipeline.
package afni

// Kind is the value kind an option expects in the gear configuration
type Kind int

const (
	// KindPath is a filesystem path, emitted verbatim
	KindPath Kind = iota
	// KindYesNo is a boolean emitted as "yes" or "no"
	KindYesNo
	// KindString is a plain string value
	KindString
	// KindInt is an integer value
	KindInt
	// KindFloat is a floating point value
	KindFloat
	// KindBool is a switch: the flag is present when true and absent otherwise
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindYesNo:
		return "yn"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Option describes how a single configuration key is rendered on the command line
type Option struct {
	Name string
	Kind Kind

	// List marks options that take several values of Kind
	List bool
}

// Special option names that do not follow the generic formatting rules.
const (
	OptionCost              = "cost"
	OptionCombineOptsTedana = "combine_opts_tedana"

	// KeyKdaw is the configuration key holding the value emitted for OptionCombineOptsTedana
	KeyKdaw = "kdaw"
)

// Options is the ordered table of afni_proc.py options supported by the gear.
// Command tokens are emitted in this order.
var Options = []Option{
	{Name: "copy_anat", Kind: KindPath},
	{Name: "anat_has_skull", Kind: KindYesNo},
	{Name: "dsets_me_run", Kind: KindPath, List: true},
	{Name: "echo_times", Kind: KindFloat, List: true},
	{Name: "reg_echo", Kind: KindString},
	{Name: "tcat_remove_first_trs", Kind: KindInt},
	{Name: OptionCost, Kind: KindString},
	{Name: "tlrc_base", Kind: KindPath},
	{Name: "tlrc_NL_warp", Kind: KindBool},
	{Name: "tlrc_no_ss", Kind: KindBool},
	{Name: "volreg_align_to", Kind: KindString},
	{Name: "volreg_align_e2a", Kind: KindBool},
	{Name: "volreg_tlrc_warp", Kind: KindBool},
	{Name: "mask_epi_anat", Kind: KindYesNo},
	{Name: "combine_method", Kind: KindString},
	{Name: OptionCombineOptsTedana, Kind: KindFloat},
	{Name: "regress_motion_per_run", Kind: KindBool},
	{Name: "regress_censor_motion", Kind: KindFloat},
	{Name: "regress_censor_outliers", Kind: KindFloat},
	{Name: "regress_apply_mot_types", Kind: KindString},
	{Name: "regress_est_blur_epits", Kind: KindBool},
}

// CostAbbreviations maps registration cost function names to the short codes
// understood by align_epi_anat.py
var CostAbbreviations = map[string]string{
	"leastsq":         "ls",
	"mutualinfo":      "mi",
	"corratio_mul":    "crM",
	"norm_mutualinfo": "nmi",
	"hellinger":       "hel",
	"corratio_add":    "crA",
	"corratio_uns":    "crU",
	"localPcorSigned": "lpc",
	"localPcorAbs":    "lpa",
	"localPcor+":      "lpc+ZZ",
	"localPcorAbs+":   "lpa+ZZ",
}

// LookupOption returns the table entry for name
func LookupOption(name string) (Option, bool) {
	for _, opt := range Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return Option{}, false
}
