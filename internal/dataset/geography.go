package dataset

// Geography code sets understood by the query service. Entries are single
// codes or inclusive ranges "a...b".
var geographies = map[string]string{
	"UK":    "2092957697",
	"GB":    "2092957698",
	"ENGL":  "2092957699",
	"WALES": "2092957700",
	"SCOTL": "2092957701",
	"NI":    "2092957702",

	"regions":       "2092957697...2092957699,2013265921...2013265932",
	"counties":      "1807745025...1807745028,1807745030...1807745032,1807745034...1807745083,1807745085,1807745282,1807745283,1807745086...1807745155,1807745157...1807745164,1807745166...1807745170,1807745172...1807745177,1807745179...1807745194,1807745196,1807745197,1807745199,1807745201...1807745218,1807745221,1807745222,1807745224,1807745226...1807745231,1807745233,1807745234,1807745236...1807745244",
	"districts":     "1811939329...1811939332,1811939334...1811939336,1811939338...1811939428,1811939436...1811939442,1811939768,1811939769,1811939443...1811939497,1811939499...1811939501,1811939503,1811939505...1811939507,1811939509...1811939517,1811939519,1811939520,1811939524...1811939570,1811939575...1811939599,1811939601...1811939628,1811939630...1811939634,1811939636...1811939647,1811939649,1811939655...1811939664,1811939667...1811939680,1811939682,1811939683,1811939685,1811939687...1811939704,1811939707,1811939708,1811939710,1811939712...1811939717,1811939719,1811939720,1811939722...1811939730",
	"metrocounties": "1937768449...1937768456",
	"dstr_mcty_cty": "1807745045,1807745056,1807745067,1807745081...1807745083,1807745085,1807745090,1807745091,1807745099,1807745106...1807745110,1811939329...1811939332,1811939334...1811939336,1811939338...1811939428,1811939436...1811939497,1811939499...1811939501,1811939503,1811939505...1811939507,1811939509...1811939517,1811939519,1811939520,1811939524...1811939570,1811939575...1811939599,1811939601...1811939628,1811939630...1811939634,1811939636...1811939647,1811939649,1811939655...1811939664,1811939667...1811939680,1811939682,1811939683,1811939685,1811939687...1811939704,1811939707,1811939708,1811939710,1811939712...1811939717,1811939719,1811939720,1811939722...1811939730,1811939768,1811939769,1937768449...1937768456,1807745158...1807745163,1807745177,1807745180,1807745181",
}

// Geography returns the named code set.
func Geography(name string) (string, bool) {
	s, ok := geographies[name]
	return s, ok
}
