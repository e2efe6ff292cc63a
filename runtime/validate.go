package tyson

// ValidateValue validates that the next encoded value in b is well-formed
// and returns the remaining bytes after that value. Checks performed:
//   - structural correctness of headers, counts and index tables
//   - string UTF-8 validity
//   - recursion limit on nesting
func ValidateValue(b []byte) (rest []byte, err error) {
	return validateValue(b, 0)
}

// ValidateDocument validates that all values in b are well-formed until the
// input is exhausted.
func ValidateDocument(b []byte) error {
	var err error
	for len(b) > 0 {
		b, err = validateValue(b, 0)
		if err != nil {
			return err
		}
	}
	return nil
}

func validateValue(b []byte, depth int) ([]byte, error) {
	if depth > recursionLimit {
		return b, ErrMaxDepthExceeded
	}
	s := Slice(b)
	sz, err := s.ByteSize()
	if err != nil {
		return b, err
	}
	if sz > len(b) {
		return b, ErrShortBytes
	}
	switch s.Type() {
	case StringType:
		payload, err := s.GetStringBytes()
		if err != nil {
			return b, err
		}
		if !isUTF8Valid(payload) {
			return b, ErrInvalidUTF8
		}
	case ArrayType:
		m, err := s.containerMeta()
		if err != nil {
			return b, err
		}
		if err := validateArrayItems(s, m, depth); err != nil {
			return b, err
		}
	case ObjectType:
		m, err := s.containerMeta()
		if err != nil {
			return b, err
		}
		if err := validateObjectEntries(s, m, depth); err != nil {
			return b, err
		}
	case InvalidType:
		return b, badType(InvalidType, InvalidType)
	}
	return b[sz:], nil
}

func validateArrayItems(s Slice, m containerMeta, depth int) error {
	if m.fixed && m.count > 0 {
		region := m.idxStart - m.itemsStart
		if region%m.count != 0 {
			return ErrShortBytes
		}
	}
	for i := 0; i < m.count; i++ {
		off, err := m.childAt(s, i)
		if err != nil {
			return err
		}
		if off >= m.idxStart {
			return ErrShortBytes
		}
		item := Slice(s[off:m.idxStart])
		isz, err := item.ByteSize()
		if err != nil {
			return err
		}
		if isz > len(item) {
			return ErrShortBytes
		}
		if _, err := validateValue(item[:isz], depth+1); err != nil {
			return err
		}
	}
	return nil
}

func validateObjectEntries(s Slice, m containerMeta, depth int) error {
	for i := 0; i < m.count; i++ {
		off, err := m.childAt(s, i)
		if err != nil {
			return err
		}
		if off >= m.idxStart {
			return ErrShortBytes
		}
		entry := Slice(s[off:m.idxStart])
		if entry.Type() != StringType {
			return badType(StringType, entry.Type())
		}
		key, err := entry.GetStringBytes()
		if err != nil {
			return err
		}
		if !isUTF8Valid(key) {
			return ErrInvalidUTF8
		}
		ksz, err := entry.ByteSize()
		if err != nil {
			return err
		}
		if ksz >= len(entry) {
			return ErrShortBytes
		}
		if _, err := validateValue(entry[ksz:], depth+1); err != nil {
			return err
		}
	}
	return nil
}
