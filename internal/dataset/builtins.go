package dataset

import "kpietl/internal/config"

// Builtins returns the default KPI catalog.
func Builtins() []config.Dataset {
	return []config.Dataset{
		{
			Name: "empl_rate_by_occup",
			URL: "{base_url}/NM_17_5.data.csv?geography={geo:UK}&date={interval}" +
				"&variable=1634...1642,1652...1696&measures=20599" +
				"&select=date_name,geography_code,geography_name,obs_value,variable_name",
			File: "Employment_Rate_Ethnicity_by_Occupation",
			Dir:  "employment_rate_ethnicity_by_occupation",
			OutputHeader: []string{
				"Date", "Geocode", "Geography", "Employment_Rate_Ethnicity_by_Occupation", "Ethnicity", "Occupation",
			},
			KeyColumns:      []int{1, 2, 5},
			RequiredColumns: []int{1, 2, 5, 6},
			Transform:       "occupation",
		},
		{
			Name: "empl_rate_by_sector",
			URL: "{base_url}/NM_17_5.data.csv?geography={geo:UK}&date={interval}" +
				"&variable=1393...1402,1413...1462&measures=20599" +
				"&select=date_name,geography_code,geography_name,obs_value,variable_name",
			File: "Employment_Rate_Ethnicity_by_Sector",
			Dir:  "employment_rate_ethnicity_by_sector",
			OutputHeader: []string{
				"Date", "Geocode", "Geography", "Employment_Rate_Ethnicity_by_Sector", "Ethnicity", "SIC", "Sector",
			},
			KeyColumns:      []int{1, 2, 5},
			RequiredColumns: []int{1, 2, 5, 6, 7},
			Transform:       "sector",
		},
		{
			Name: "empl_vol",
			URL: "{base_url}/NM_17_5.data.csv?geography={geo:dstr_mcty_cty}&date={interval}" +
				"&variable=45&measures=21001" +
				"&select=date_name,geography_code,geography_name,obs_value",
			File:            "Employment_16plus",
			Dir:             "employment_volume",
			ValidFile:       "valid_CTY_and_LA_Employment_16plus",
			OutputHeader:    []string{"Date", "Geocode", "Geography", "Value"},
			KeyColumns:      []int{1, 2},
			RequiredColumns: []int{1, 2},
			Transform:       "volume",
		},
	}
}
