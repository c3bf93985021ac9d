// Package dataset persists and reloads tables as partitioned columnar
// datasets: one directory per distinct partition value, each holding
// snappy-compressed columnar blobs. The partition column's value lives only
// in the directory name, never in the blob body.
package dataset

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	qerrors "github.com/arkilian/quarry/internal/errors"
	"github.com/arkilian/quarry/pkg/types"
)

// Blob format:
//
//	4 bytes magic "QCB1"
//	4 bytes header length, then header JSON (schema + row count)
//	per column, in schema order: 4 bytes length, then
//	snappy(JSON array of canonical value strings, null for NULL)
const blobMagic = "QCB1"

// blobHeader describes the columns stored in one blob.
type blobHeader struct {
	Schema   types.Schema `json:"schema"`
	RowCount int          `json:"row_count"`
}

// EncodeBlob serializes rows column-major under the given schema.
func EncodeBlob(schema types.Schema, rows []types.Row) ([]byte, error) {
	header, err := json.Marshal(blobHeader{Schema: schema, RowCount: len(rows)})
	if err != nil {
		return nil, qerrors.NewInternalError("failed to encode blob header", err)
	}

	out := make([]byte, 0, 8+len(header))
	out = append(out, blobMagic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(header)))
	out = append(out, header...)

	for _, col := range schema.Columns {
		vals := make([]*string, len(rows))
		for i, row := range rows {
			if v := row[col.Name]; v != nil {
				s := types.Format(v)
				vals[i] = &s
			}
		}
		raw, err := json.Marshal(vals)
		if err != nil {
			return nil, qerrors.NewInternalError("failed to encode column "+col.Name, err)
		}
		compressed := snappy.Encode(nil, raw)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(compressed)))
		out = append(out, compressed...)
	}

	return out, nil
}

// DecodeBlob reconstructs a blob's schema and rows.
func DecodeBlob(data []byte) (types.Schema, []types.Row, error) {
	var schema types.Schema

	if len(data) < 8 || string(data[:4]) != blobMagic {
		return schema, nil, qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob, "bad blob magic")
	}

	headerLen := binary.LittleEndian.Uint32(data[4:8])
	if uint32(len(data)) < 8+headerLen {
		return schema, nil, qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob, "truncated blob header")
	}

	var header blobHeader
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return schema, nil, qerrors.Wrap(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob, "failed to decode blob header", err)
	}
	schema = header.Schema

	rows := make([]types.Row, header.RowCount)
	for i := range rows {
		rows[i] = make(types.Row, len(schema.Columns))
	}

	offset := 8 + headerLen
	for _, col := range schema.Columns {
		if uint32(len(data)) < offset+4 {
			return schema, nil, qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
				fmt.Sprintf("truncated blob at column %q", col.Name))
		}
		colLen := binary.LittleEndian.Uint32(data[offset : offset+4])
		offset += 4
		if uint32(len(data)) < offset+colLen {
			return schema, nil, qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
				fmt.Sprintf("truncated blob data for column %q", col.Name))
		}

		raw, err := snappy.Decode(nil, data[offset:offset+colLen])
		if err != nil {
			return schema, nil, qerrors.Wrap(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
				fmt.Sprintf("snappy decompress failed for column %q", col.Name), err)
		}
		offset += colLen

		var vals []*string
		if err := json.Unmarshal(raw, &vals); err != nil {
			return schema, nil, qerrors.Wrap(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
				fmt.Sprintf("failed to decode column %q", col.Name), err)
		}
		if len(vals) != header.RowCount {
			return schema, nil, qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
				fmt.Sprintf("column %q has %d values, header says %d rows", col.Name, len(vals), header.RowCount))
		}

		for i, sp := range vals {
			if sp == nil {
				rows[i][col.Name] = nil
				continue
			}
			v, err := types.Parse(*sp, col.Type)
			if err != nil {
				return schema, nil, qerrors.Wrap(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
					fmt.Sprintf("bad value in column %q", col.Name), err)
			}
			rows[i][col.Name] = v
		}
	}

	return schema, rows, nil
}
