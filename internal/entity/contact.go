package entity

import "fmt"

// ContactRecord is the canonical per-image extraction result for data
// transfer between layers. FileName is the join key back to the source
// image; the seven informational fields are nullable. A record is either a
// successful extraction (Error == nil) or an error placeholder with every
// informational field nil, never a partial mix.
type ContactRecord struct {
	FileName       string  `json:"fileName"`
	Name           *string `json:"name"`
	Title          *string `json:"title"`
	CompanyName    *string `json:"companyName"`
	PhoneNumber    *string `json:"phoneNumber"`
	EmailAddress   *string `json:"emailAddress"`
	CompanyAddress *string `json:"companyAddress"`
	CompanyWebsite *string `json:"companyWebsite"`
	Error          *string `json:"error"`
}

// Canonical column labels, also the editable field names.
const (
	FieldName           = "Name"
	FieldTitle          = "Title"
	FieldCompanyName    = "Company Name"
	FieldPhoneNumber    = "Phone Number"
	FieldEmailAddress   = "Email Address"
	FieldCompanyAddress = "Company Address"
	FieldCompanyWebsite = "Company Website"
)

// EditableFields lists the informational fields in canonical column order.
var EditableFields = []string{
	FieldCompanyName,
	FieldName,
	FieldTitle,
	FieldPhoneNumber,
	FieldEmailAddress,
	FieldCompanyAddress,
	FieldCompanyWebsite,
}

// NewErrorRecord builds the placeholder record for a failed item: every
// informational field nil and Error carrying a human-readable message.
func NewErrorRecord(fileName, message string) ContactRecord {
	return ContactRecord{
		FileName: fileName,
		Error:    &message,
	}
}

// Field returns the value of the named informational field, or nil.
func (r *ContactRecord) Field(name string) (*string, error) {
	p, err := r.fieldPtr(name)
	if err != nil {
		return nil, err
	}
	return *p, nil
}

// SetField applies a user correction in place. FileName and Error are not
// editable; an empty value clears the field back to null.
func (r *ContactRecord) SetField(name, value string) error {
	p, err := r.fieldPtr(name)
	if err != nil {
		return err
	}
	if value == "" {
		*p = nil
		return nil
	}
	v := value
	*p = &v
	return nil
}

func (r *ContactRecord) fieldPtr(name string) (**string, error) {
	switch name {
	case FieldName:
		return &r.Name, nil
	case FieldTitle:
		return &r.Title, nil
	case FieldCompanyName:
		return &r.CompanyName, nil
	case FieldPhoneNumber:
		return &r.PhoneNumber, nil
	case FieldEmailAddress:
		return &r.EmailAddress, nil
	case FieldCompanyAddress:
		return &r.CompanyAddress, nil
	case FieldCompanyWebsite:
		return &r.CompanyWebsite, nil
	default:
		return nil, fmt.Errorf("field %q is not editable", name)
	}
}
