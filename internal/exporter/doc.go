// Package exporter writes pipeline outputs.
//
// CSVWriter is the low-level writer: headers, append mode, streaming, and a
// UTF-8 BOM so Excel opens the files with the right encoding. Relative paths
// land in the processed data directory.
//
// ForecastExporter builds on it to write the forecast table
//
//	Year,Scenario,Access_Rate,Usage_Rate,Lower_CI,Upper_CI
//
// as CSV (and optionally xlsx), and the impact matrix as CSV. Rates are
// written with two decimals; absent rates are empty cells. ReadForecastTable
// reads the CSV back.
package exporter
