package persist

import (
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"infobox_scraper/internal/record"
)

// BSONCodec is the rich format. Every field is stored as a kind-tagged
// envelope so null amounts, null dates and missing values stay distinct, and
// dates use the native BSON datetime.
type BSONCodec struct{}

type bsonField struct {
	Key   string `bson:"k"`
	Kind  string `bson:"t"`
	Value any    `bson:"v"`
}

type bsonRecord struct {
	Fields []bsonField `bson:"fields"`
}

type bsonCollection struct {
	Records []bsonRecord `bson:"records"`
}

func (BSONCodec) Name() string { return "bson" }

func (BSONCodec) Encode(w io.Writer, records []*record.Record) error {
	coll := bsonCollection{Records: make([]bsonRecord, 0, len(records))}
	for _, rec := range records {
		br := bsonRecord{Fields: make([]bsonField, 0, rec.Len())}
		rec.Each(func(key string, v record.Value) bool {
			br.Fields = append(br.Fields, bsonField{Key: key, Kind: v.Kind().String(), Value: bsonValue(v)})
			return true
		})
		coll.Records = append(coll.Records, br)
	}

	data, err := bson.Marshal(coll)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (BSONCodec) Decode(r io.Reader) ([]*record.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var coll bsonCollection
	if err := bson.Unmarshal(data, &coll); err != nil {
		return nil, err
	}

	records := make([]*record.Record, 0, len(coll.Records))
	for i, br := range coll.Records {
		rec := record.New()
		for _, f := range br.Fields {
			v, err := fromBSON(f)
			if err != nil {
				return nil, fmt.Errorf("record %d field %q: %w", i, f.Key, err)
			}
			rec.Set(f.Key, v)
		}
		records = append(records, rec)
	}
	return records, nil
}

func bsonValue(v record.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case record.KindText:
		s, _ := v.Text()
		return s
	case record.KindList:
		items, _ := v.List()
		return items
	case record.KindInt:
		n, _ := v.Int()
		return int64(n)
	case record.KindMoney:
		f, _ := v.Money()
		return f
	case record.KindDate:
		t, _ := v.Date()
		return t.UTC()
	}
	return nil
}

func fromBSON(f bsonField) (record.Value, error) {
	kind, err := record.ParseKind(f.Kind)
	if err != nil {
		return record.Missing(), err
	}

	switch kind {
	case record.KindMissing:
		return record.Missing(), nil
	case record.KindText:
		s, ok := f.Value.(string)
		if !ok {
			return record.Missing(), typeErr(kind, f.Value)
		}
		return record.Text(s), nil
	case record.KindList:
		arr, ok := f.Value.(primitive.A)
		if !ok {
			return record.Missing(), typeErr(kind, f.Value)
		}
		items := make([]string, 0, len(arr))
		for _, item := range arr {
			s, ok := item.(string)
			if !ok {
				return record.Missing(), typeErr(kind, item)
			}
			items = append(items, s)
		}
		return record.List(items...), nil
	case record.KindInt:
		switch n := f.Value.(type) {
		case int32:
			return record.Int(int(n)), nil
		case int64:
			return record.Int(int(n)), nil
		}
		return record.Missing(), typeErr(kind, f.Value)
	case record.KindMoney:
		if f.Value == nil {
			return record.NullMoney(), nil
		}
		amount, ok := f.Value.(float64)
		if !ok {
			return record.Missing(), typeErr(kind, f.Value)
		}
		return record.Money(amount), nil
	case record.KindDate:
		if f.Value == nil {
			return record.NullDate(), nil
		}
		dt, ok := f.Value.(primitive.DateTime)
		if !ok {
			return record.Missing(), typeErr(kind, f.Value)
		}
		return record.Date(dt.Time().UTC()), nil
	}
	return record.Missing(), typeErr(kind, f.Value)
}

func typeErr(kind record.Kind, v any) error {
	return fmt.Errorf("%s field holds %T", kind, v)
}

// RecordDocument converts rec to a plain BSON document in field order. Null
// and missing values become BSON null.
func RecordDocument(rec *record.Record) bson.D {
	doc := make(bson.D, 0, rec.Len())
	rec.Each(func(key string, v record.Value) bool {
		doc = append(doc, bson.E{Key: key, Value: bsonValue(v)})
		return true
	})
	return doc
}
