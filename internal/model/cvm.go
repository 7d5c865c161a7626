package model

// knownModels maps engine model ids to display names.
var knownModels = map[string]string{
	"1d":       "1D(1d)",
	"1dgtl":    "1D w/ Vs30 GTL(1dgtl)",
	"bbp1d":    "Broadband Northridge Region 1D Model(bbp1d)",
	"cvms":     "CVM-S4(cvms)",
	"cvms5":    "CVM-S4.26(cvms5)",
	"cvms426":  "CVM-S4.26.M01(cvmsi)",
	"cca":      "CCA 06(cca)",
	"cs173":    "CyberShake 17.3(cs173)",
	"cs173h":   "CyberShake 17.3 with San Joaquin and Santa Maria Basins data(cs173h)",
	"cvmh1511": "CVM-H 15.1.1(cvmh)",
	"cencal":   "USGS Bay Area Model(cencal)",
}

// DescribeModel returns a display name for a model id, or the id itself
// when the model is not one of the known community models.
func DescribeModel(id string) string {
	if name, ok := knownModels[id]; ok {
		return name
	}
	return id
}
