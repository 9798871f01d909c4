package datasetiq

// Source identifies one upstream data source that series can be browsed by.
type Source struct {
	ID   string
	Name string
}

// Sources is the fixed catalog of browsable data sources.
var Sources = []Source{
	{ID: "FRED", Name: "FRED (Federal Reserve)"},
	{ID: "BLS", Name: "BLS (Bureau of Labor Statistics)"},
	{ID: "OECD", Name: "OECD"},
	{ID: "EUROSTAT", Name: "Eurostat"},
	{ID: "IMF", Name: "IMF"},
	{ID: "WORLDBANK", Name: "World Bank"},
	{ID: "ECB", Name: "ECB (European Central Bank)"},
	{ID: "BOE", Name: "Bank of England"},
	{ID: "CENSUS", Name: "US Census Bureau"},
	{ID: "EIA", Name: "EIA (Energy Information)"},
}
