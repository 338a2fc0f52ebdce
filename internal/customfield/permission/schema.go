package permission

import "github.com/peoplebase/peoplebase-backend/internal/customfield/domain"

// CanViewSchema: system schemas and company-less templates are visible to
// everyone; company schemas need CanView on the company.
func (o *Oracle) CanViewSchema(s *domain.Schema) bool {
	if s.IsSystem || s.IsTemplate() {
		return true
	}
	return o.CanView(*s.CompanyID)
}

// CanMutateSchema gates update and delete of an existing schema.
//
// Company schemas need CanManage, plus IsElevated when the schema is a system
// schema. Templates need CanCreateTenantResource; a system template has no
// company to be elevated in, so only the system actor may change it.
func (o *Oracle) CanMutateSchema(s *domain.Schema) bool {
	if s.IsTemplate() {
		if s.IsSystem {
			return o.IsSystem()
		}
		return o.CanCreateTenantResource()
	}
	if !o.CanManage(*s.CompanyID) {
		return false
	}
	return !s.IsSystem || o.IsElevated(*s.CompanyID)
}

// CanCreateSchema gates creation of a schema from spec.
func (o *Oracle) CanCreateSchema(spec *domain.SchemaSpec) bool {
	if spec.CompanyID == nil {
		if spec.IsSystem {
			return o.IsSystem()
		}
		return o.CanCreateTenantResource()
	}
	if !o.CanManage(*spec.CompanyID) {
		return false
	}
	return !spec.IsSystem || o.IsElevated(*spec.CompanyID)
}

// CanWriteValues gates creating, updating and deleting values of a schema.
// Company-less schemas are usable by any active account.
func (o *Oracle) CanWriteValues(s *domain.Schema) bool {
	if s.IsTemplate() {
		return o.CanCreateTenantResource()
	}
	return o.CanManage(*s.CompanyID)
}

// CanReadValue: values are readable when their schema's company is viewable.
// Values of shared schemas are readable by any account that can view the
// schema itself.
func (o *Oracle) CanReadValue(schemaCompanyID *int64) bool {
	if schemaCompanyID == nil {
		return true
	}
	return o.CanView(*schemaCompanyID)
}
