package tripdata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"taxi-duration-lab/internal/domain"
)

const readBatchSize = 1024

// Reader decodes trip files into TripRecords.
type Reader struct {
	storage  *Storage
	taxiType domain.TaxiType
}

// NewReader creates a Reader for one taxi type's column layout.
func NewReader(storage *Storage, taxiType domain.TaxiType) *Reader {
	return &Reader{storage: storage, taxiType: taxiType}
}

// Read fetches location and decodes every row in file order.
func (r *Reader) Read(ctx context.Context, location string) ([]domain.TripRecord, error) {
	data, err := r.storage.ReadAll(ctx, location)
	if err != nil {
		return nil, err
	}
	records, err := DecodeTrips(data, r.taxiType.Columns())
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrRead, location, err)
	}
	return records, nil
}

// tripColumn is a resolved leaf column of the file schema.
type tripColumn struct {
	index int
	unit  time.Duration // timestamp resolution, zero for non-timestamps
}

// DecodeTrips decodes a parquet file held in memory.
// Pickup and dropoff columns are required; zone and distance columns are
// optional and read as null when missing from the file. A null timestamp
// decodes as the zero time so the row keeps its position in the file.
func DecodeTrips(data []byte, cols domain.TripColumns) ([]domain.TripRecord, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	schema := f.Schema()

	pickup, ok := lookupColumn(schema, cols.Pickup)
	if !ok {
		return nil, fmt.Errorf("missing column %q", cols.Pickup)
	}
	dropoff, ok := lookupColumn(schema, cols.Dropoff)
	if !ok {
		return nil, fmt.Errorf("missing column %q", cols.Dropoff)
	}
	rc := resolvedColumns{pickup: pickup, dropoff: dropoff}
	rc.puZone, rc.hasPU = lookupColumn(schema, cols.PickupZone)
	rc.doZone, rc.hasDO = lookupColumn(schema, cols.DropZone)
	rc.distance, rc.hasDist = lookupColumn(schema, cols.Distance)

	records := make([]domain.TripRecord, 0, f.NumRows())
	buf := make([]parquet.Row, readBatchSize)

	for _, rg := range f.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				rec, rowErr := rc.decode(row)
				if rowErr != nil {
					rows.Close()
					return nil, fmt.Errorf("row %d: %w", len(records), rowErr)
				}
				records = append(records, rec)
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("read rows: %w", err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("close row group: %w", err)
		}
	}

	return records, nil
}

// resolvedColumns maps file column indexes to TripRecord fields.
type resolvedColumns struct {
	pickup, dropoff          tripColumn
	puZone, doZone, distance tripColumn
	hasPU, hasDO, hasDist    bool
}

func (rc resolvedColumns) decode(row parquet.Row) (domain.TripRecord, error) {
	var (
		rec domain.TripRecord
		err error
	)
	for _, v := range row {
		switch c := v.Column(); {
		case c == rc.pickup.index:
			rec.PickupTime, err = timeValue(v, rc.pickup.unit)
		case c == rc.dropoff.index:
			rec.DropoffTime, err = timeValue(v, rc.dropoff.unit)
		case rc.hasPU && c == rc.puZone.index:
			rec.PickupZone = intValue(v)
		case rc.hasDO && c == rc.doZone.index:
			rec.DropoffZone = intValue(v)
		case rc.hasDist && c == rc.distance.index:
			rec.TripDistance = floatValue(v)
		}
		if err != nil {
			return domain.TripRecord{}, err
		}
	}
	return rec, nil
}

// lookupColumn finds a top-level column by name, falling back to a
// case-insensitive match since TLC files are inconsistent about casing.
func lookupColumn(schema *parquet.Schema, name string) (tripColumn, bool) {
	if name == "" {
		return tripColumn{}, false
	}

	leaf, ok := schema.Lookup(name)
	if !ok {
		for _, field := range schema.Fields() {
			if strings.EqualFold(field.Name(), name) {
				leaf, ok = schema.Lookup(field.Name())
				break
			}
		}
	}
	if !ok {
		return tripColumn{}, false
	}

	col := tripColumn{index: leaf.ColumnIndex}
	if lt := leaf.Node.Type().LogicalType(); lt != nil && lt.Timestamp != nil {
		switch {
		case lt.Timestamp.Unit.Millis != nil:
			col.unit = time.Millisecond
		case lt.Timestamp.Unit.Nanos != nil:
			col.unit = time.Nanosecond
		default:
			col.unit = time.Microsecond
		}
	}
	return col, true
}

func timeValue(v parquet.Value, unit time.Duration) (time.Time, error) {
	if v.IsNull() {
		return time.Time{}, nil
	}
	if v.Kind() != parquet.Int64 {
		return time.Time{}, fmt.Errorf("timestamp column has kind %s", v.Kind())
	}
	if unit == 0 {
		unit = time.Microsecond
	}
	ticks := v.Int64()
	switch unit {
	case time.Millisecond:
		return time.UnixMilli(ticks).UTC(), nil
	case time.Nanosecond:
		return time.Unix(0, ticks).UTC(), nil
	default:
		return time.UnixMicro(ticks).UTC(), nil
	}
}

// intValue reads a zone ID. FHV files store these as doubles.
func intValue(v parquet.Value) *int64 {
	if v.IsNull() {
		return nil
	}
	var x int64
	switch v.Kind() {
	case parquet.Int32:
		x = int64(v.Int32())
	case parquet.Int64:
		x = v.Int64()
	case parquet.Float:
		x = int64(v.Float())
	case parquet.Double:
		x = int64(v.Double())
	default:
		return nil
	}
	return &x
}

func floatValue(v parquet.Value) *float64 {
	if v.IsNull() {
		return nil
	}
	var x float64
	switch v.Kind() {
	case parquet.Int32:
		x = float64(v.Int32())
	case parquet.Int64:
		x = float64(v.Int64())
	case parquet.Float:
		x = float64(v.Float())
	case parquet.Double:
		x = v.Double()
	default:
		return nil
	}
	return &x
}
