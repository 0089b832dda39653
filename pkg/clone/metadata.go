package clone

import "strconv"

var MetadataTitle = []string{"subjects", "clones", "copies"}

// MakeMetadataTable summarises each value of field: distinct subjects, distinct clones and copies.
func MakeMetadataTable(t *Table, field string) (*Table, error) {
	if err := t.Require(field, FieldSubject, FieldCloneID); err != nil {
		return nil, err
	}
	var out = NewTable(append([]string{field}, MetadataTitle...), nil)
	out.SetNumeric(MetadataTitle...)
	for _, g := range t.GroupBy(field) {
		copies, err := Sum(g.Records, FieldCopies)
		if err != nil {
			return nil, err
		}
		record, err := NewRecord(map[string]string{
			field:       g.Key,
			"subjects":  strconv.Itoa(CountDistinct(g.Records, FieldSubject)),
			FieldClones: strconv.Itoa(CountDistinct(g.Records, FieldCloneID)),
			FieldCopies: strconv.FormatFloat(copies, 'f', -1, 64),
		})
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, record)
	}
	return out, nil
}
