package meds

import (
	localsource "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/aces-go/aces/internal/acerr"
)

// WriteParquet writes rows to path as a MEDS-schema parquet label table.
func WriteParquet(path string, rows []LabelRow) error {
	fw, err := localsource.NewLocalFileWriter(path)
	if err != nil {
		return acerr.Wrap(acerr.DataShape, path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(LabelRow), 4)
	if err != nil {
		return acerr.Wrap(acerr.DataShape, path, err)
	}
	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			return acerr.Wrap(acerr.DataShape, path, err)
		}
	}
	return pw.WriteStop()
}
