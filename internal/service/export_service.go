package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/authz"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/pkg/export"
)

var matrixBaseHeaders = []string{"Employee ID", "First Name", "Last Name", "Position", "Department"}

type matrixEmployeeSource interface {
	ListAll(ctx context.Context) ([]models.Employee, error)
}

type matrixSkillSource interface {
	List(ctx context.Context) ([]models.Skill, error)
}

type matrixLevelSource interface {
	Matrix(ctx context.Context) ([]models.MatrixCell, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportService renders the skill matrix as CSV.
type ExportService struct {
	employees matrixEmployeeSource
	skills    matrixSkillSource
	levels    matrixLevelSource
	csv       csvRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(employees matrixEmployeeSource, skills matrixSkillSource, levels matrixLevelSource, csv csvRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		employees: employees,
		skills:    skills,
		levels:    levels,
		csv:       csv,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ExportMatrix returns one row per employee and one column per skill holding
// the employee's latest level.
func (s *ExportService) ExportMatrix(ctx context.Context, actor *models.Principal) ([]byte, string, error) {
	if err := authz.Authorize(actor, authz.ActionExportMatrix); err != nil {
		return nil, "", err
	}
	employees, err := s.employees.ListAll(ctx)
	if err != nil {
		return nil, "", internalError(err, "failed to load employees")
	}
	skills, err := s.skills.List(ctx)
	if err != nil {
		return nil, "", internalError(err, "failed to load skills")
	}
	cells, err := s.levels.Matrix(ctx)
	if err != nil {
		return nil, "", internalError(err, "failed to load skill levels")
	}

	dataset := buildMatrixDataset(employees, skills, cells)
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", internalError(err, "failed to render skill matrix")
	}
	s.logger.Info("skill matrix exported",
		zap.Int("employees", len(employees)),
		zap.Int("skills", len(skills)),
	)
	filename := sanitizeFilename(fmt.Sprintf("skill_matrix_%s.csv", s.now().Format("20060102")))
	return payload, filename, nil
}

func buildMatrixDataset(employees []models.Employee, skills []models.Skill, cells []models.MatrixCell) export.Dataset {
	headers := append([]string(nil), matrixBaseHeaders...)
	columns := make(map[int]string, len(skills))
	seen := make(map[string]bool, len(skills)+len(headers))
	for _, h := range headers {
		seen[h] = true
	}
	for _, skill := range skills {
		column := skill.SkillName
		if seen[column] {
			column = fmt.Sprintf("%s (#%d)", skill.SkillName, skill.ID)
		}
		seen[column] = true
		columns[skill.ID] = column
		headers = append(headers, column)
	}

	levels := make(map[int]map[int]models.SkillLevel)
	for _, cell := range cells {
		if levels[cell.EmployeeID] == nil {
			levels[cell.EmployeeID] = make(map[int]models.SkillLevel)
		}
		levels[cell.EmployeeID][cell.SkillID] = cell.Level
	}

	rows := make([]map[string]string, 0, len(employees))
	for _, employee := range employees {
		row := map[string]string{
			"Employee ID": strconv.Itoa(employee.ID),
			"First Name":  employee.FirstName,
			"Last Name":   employee.LastName,
			"Position":    deref(employee.Position),
			"Department":  deref(employee.Department),
		}
		for skillID, level := range levels[employee.ID] {
			if column, ok := columns[skillID]; ok {
				row[column] = string(level)
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
