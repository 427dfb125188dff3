// Package dataprocessing turns a projected cargo-movements table into the
// ordered, filtered movements that make up the grade report.
//
// # Flow
//
//	Table → DecodeTable → timestamps normalised → SortByLoadEnd →
//	FilterCategory → FilterGrades → []domain.Movement
//
// Decoding discovers vessel positions from the vessels.N.* columns of the
// projection. A row missing a projected column is a data shape error.
//
// Timestamps keep only their date component and are rendered DD.MM.YYYY.
// A present but unparsable timestamp anywhere in the table fails the run;
// an absent one stays absent and sorts last.
//
// # Usage
//
//	transformer := dataprocessing.NewTransformer("", grades, logger)
//	result, err := transformer.Transform(ctx, table)
//	if err != nil {
//	    return err
//	}
//	summaries := dataprocessing.NewSummarizer(logger).Summarize(ctx, result.Movements)
package dataprocessing
