package features

// Feature names as they appear in configuration and the training table.
const (
	Age             = "Age"
	WTW             = "WTW"
	ACDInternal     = "ACD_internal"
	ACV             = "ACV"
	ACAGlobal       = "ACA_global"
	PupilDiameter   = "Pupil_diameter"
	ACShapeRatio    = "AC_shape_ratio"
	TCRPKm          = "TCRP_Km"
	TCRPAstigmatism = "TCRP_Astigmatism"
	SEQ             = "SEQ"
	ICLPower        = "ICL_Power"
	SimKSteep       = "SimK_steep"
	CCT             = "CCT"
	BADD            = "BAD_D"
	LensSize        = "Lens_Size"
	Vault           = "Vault"
)

// ScanFeatures lists the values read directly from a scan document.
func ScanFeatures() []string {
	return []string{WTW, ACDInternal, ACV, ACAGlobal, PupilDiameter, TCRPKm, TCRPAstigmatism, SimKSteep, CCT, BADD}
}

// Columns lists every numeric column of the training table in output order.
func Columns() []string {
	return []string{
		Age, WTW, ACDInternal, ACV, ACAGlobal, PupilDiameter, ACShapeRatio,
		TCRPKm, TCRPAstigmatism, SEQ, ICLPower, SimKSteep, CCT, BADD, LensSize, Vault,
	}
}

// Outcomes lists the roster outcome columns.
func Outcomes() []string {
	return []string{LensSize, Vault}
}

// IsScanFeature reports whether name is read from scan documents.
func IsScanFeature(name string) bool {
	for _, f := range ScanFeatures() {
		if f == name {
			return true
		}
	}
	return false
}

// IsColumn reports whether name is a training table column.
func IsColumn(name string) bool {
	for _, f := range Columns() {
		if f == name {
			return true
		}
	}
	return false
}
