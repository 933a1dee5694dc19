// Package cvxml decodes calculation-view XML documents into the parsed-view
// contract the rest of the engine consumes. Decoding is namespace-tolerant:
// element and attribute matching goes by local name, since the documents mix
// several vendor namespaces. Byte-fidelity re-serialization is out of scope.
package cvxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cvmigrate/internal/domain"
)

type scenario struct {
	ID           string        `xml:"id,attr"`
	Descriptions descriptions  `xml:"descriptions"`
	Variables    []variable    `xml:"localVariables>variable"`
	DataSources  []dataSource  `xml:"dataSources>DataSource"`
	Views        []calcView    `xml:"calculationViews>calculationView"`
	LogicalModel *logicalModel `xml:"logicalModel"`
}

type descriptions struct {
	Default string `xml:"defaultDescription,attr"`
}

type variable struct {
	ID           string       `xml:"id,attr"`
	Parameter    string       `xml:"parameter,attr"`
	Descriptions descriptions `xml:"descriptions"`
	Properties   struct {
		Datatype  string `xml:"datatype,attr"`
		Length    string `xml:"length,attr"`
		Mandatory string `xml:"mandatory,attr"`
		Selection struct {
			Type string `xml:"type,attr"`
		} `xml:"selection"`
	} `xml:"variableProperties"`
}

type dataSource struct {
	ID           string `xml:"id,attr"`
	Type         string `xml:"type,attr"`
	ColumnObject struct {
		Schema string `xml:"schemaName,attr"`
		Name   string `xml:"columnObjectName,attr"`
	} `xml:"columnObject"`
	ResourceURI string `xml:"resourceUri"`
}

type calcView struct {
	Type           string          `xml:"type,attr"`
	ID             string          `xml:"id,attr"`
	Cardinality    string          `xml:"cardinality,attr"`
	JoinType       string          `xml:"joinType,attr"`
	Descriptions   descriptions    `xml:"descriptions"`
	ViewAttributes []viewAttribute `xml:"viewAttributes>viewAttribute"`
	CalcAttributes []calcAttribute `xml:"calculatedViewAttributes>calculatedViewAttribute"`
	Inputs         []viewInput     `xml:"input"`
	Filter         string          `xml:"filter"`
}

type viewAttribute struct {
	ID string `xml:"id,attr"`
}

type calcAttribute struct {
	ID                 string `xml:"id,attr"`
	Datatype           string `xml:"datatype,attr"`
	Length             string `xml:"length,attr"`
	ExpressionLanguage string `xml:"expressionLanguage,attr"`
	Formula            string `xml:"formula"`
}

type viewInput struct {
	Node     string         `xml:"node,attr"`
	Mappings []inputMapping `xml:"mapping"`
}

type inputMapping struct {
	Target string `xml:"target,attr"`
	Source string `xml:"source,attr"`
}

type logicalModel struct {
	Attributes []logicalAttribute `xml:"attributes>attribute"`
	Measures   []logicalMeasure   `xml:"baseMeasures>measure"`
}

type logicalAttribute struct {
	ID           string       `xml:"id,attr"`
	Descriptions descriptions `xml:"descriptions"`
	KeyMapping   keyMapping   `xml:"keyMapping"`
}

type logicalMeasure struct {
	ID           string       `xml:"id,attr"`
	Descriptions descriptions `xml:"descriptions"`
	Mapping      keyMapping   `xml:"measureMapping"`
}

type keyMapping struct {
	ColumnObjectName string `xml:"columnObjectName,attr"`
	ColumnName       string `xml:"columnName,attr"`
}

// Parse decodes one calculation-view document.
func Parse(r io.Reader) (*domain.ViewDefinition, error) {
	var sc scenario
	if err := xml.NewDecoder(r).Decode(&sc); err != nil {
		return nil, domain.ErrValidation("invalid calculation view document: %v", err)
	}
	if sc.ID == "" {
		return nil, domain.ErrValidation("calculation view document has no scenario id")
	}

	view := &domain.ViewDefinition{
		ID:          sc.ID,
		Description: sc.Descriptions.Default,
	}

	for _, v := range sc.Variables {
		view.Parameters = append(view.Parameters, domain.InputParameter{
			ID:            v.ID,
			IsParameter:   parseBool(v.Parameter),
			Description:   v.Descriptions.Default,
			Datatype:      v.Properties.Datatype,
			Length:        parseInt(v.Properties.Length),
			Mandatory:     parseBool(v.Properties.Mandatory),
			SelectionType: v.Properties.Selection.Type,
		})
	}

	for _, ds := range sc.DataSources {
		table := ds.ColumnObject.Name
		if table == "" {
			table = ds.ID
		}
		view.DataSources = append(view.DataSources, domain.DataSourceDef{
			ID:             ds.ID,
			Type:           ds.Type,
			Schema:         ds.ColumnObject.Schema,
			Table:          table,
			UsesAllColumns: true,
			ResourceURI:    strings.TrimSpace(ds.ResourceURI),
		})
	}

	for _, cv := range sc.Views {
		nd := domain.NodeDef{
			ID:          cv.ID,
			Kind:        cv.Type,
			Filter:      strings.TrimSpace(cv.Filter),
			JoinType:    cv.JoinType,
			Cardinality: cv.Cardinality,
			Description: cv.Descriptions.Default,
		}
		for _, va := range cv.ViewAttributes {
			nd.Attributes = append(nd.Attributes, va.ID)
		}
		for _, ca := range cv.CalcAttributes {
			nd.CalculatedColumns = append(nd.CalculatedColumns, domain.CalculatedColumn{
				ID:                 ca.ID,
				Datatype:           ca.Datatype,
				Length:             parseInt(ca.Length),
				ExpressionLanguage: ca.ExpressionLanguage,
				Formula:            strings.TrimSpace(ca.Formula),
			})
		}
		for _, in := range cv.Inputs {
			idef := domain.InputDef{SourceNode: in.Node}
			for _, m := range in.Mappings {
				idef.Mappings = append(idef.Mappings, domain.MappingPair{Source: m.Source, Target: m.Target})
			}
			nd.Inputs = append(nd.Inputs, idef)
		}
		view.Nodes = append(view.Nodes, nd)
	}

	if sc.LogicalModel != nil {
		for _, a := range sc.LogicalModel.Attributes {
			view.LogicalModel = append(view.LogicalModel, domain.LogicalColumn{
				ID:               a.ID,
				Description:      a.Descriptions.Default,
				ColumnObjectName: a.KeyMapping.ColumnObjectName,
				ColumnName:       a.KeyMapping.ColumnName,
			})
		}
		for _, m := range sc.LogicalModel.Measures {
			view.LogicalModel = append(view.LogicalModel, domain.LogicalColumn{
				ID:               m.ID,
				Description:      m.Descriptions.Default,
				ColumnObjectName: m.Mapping.ColumnObjectName,
				ColumnName:       m.Mapping.ColumnName,
				IsMeasure:        true,
			})
		}
	}

	return view, nil
}

// ParseFile decodes a calculation-view file from disk.
func ParseFile(path string) (*domain.ViewDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open view file: %w", err)
	}
	defer f.Close()
	view, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return view, nil
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
