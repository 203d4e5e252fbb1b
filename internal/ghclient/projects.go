package ghclient

import (
	"context"
	"fmt"
	"strconv"

	graphql "github.com/cli/shurcooL-graphql"

	"github.com/nopo-automation/issuebot/internal/issuedata"
)

// numericProjectFields names the board fields carried as GraphQL Number
// values rather than single-select options (spec.md §3: "iteration ≥ 0,
// failures ≥ 0").
var numericProjectFields = map[string]bool{"Iteration": true, "Failures": true}

// projectFields is the subset of project-item field values the Context
// Loader needs (spec.md §4.2: "Status, Iteration, Failures").
type projectFields struct {
	Status    issuedata.ProjectStatus
	Iteration int
	Failures  int
}

// projectStatus reads the Status/Iteration/Failures fields of the
// issue's item on the configured project board in one request. Returns
// a zero value when the issue has no item on that project.
func (c *Client) projectStatus(ctx context.Context, owner, repo string, number, projectNumber int) (projectFields, error) {
	if projectNumber == 0 {
		return projectFields{}, nil
	}

	var q struct {
		Repository struct {
			Issue struct {
				ProjectItems struct {
					Nodes []struct {
						Project struct {
							Number int
						}
						Status struct {
							SingleSelect struct {
								Name string
							} `graphql:"... on ProjectV2ItemFieldSingleSelectValue"`
						} `graphql:"status: fieldValueByName(name: \"Status\")"`
						Iteration struct {
							NumberValue struct {
								Number float64
							} `graphql:"... on ProjectV2ItemFieldNumberValue"`
						} `graphql:"iteration: fieldValueByName(name: \"Iteration\")"`
						Failures struct {
							NumberValue struct {
								Number float64
							} `graphql:"... on ProjectV2ItemFieldNumberValue"`
						} `graphql:"failures: fieldValueByName(name: \"Failures\")"`
					}
				} `graphql:"projectItems(first: 10)"`
			} `graphql:"issue(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  graphql.String(owner),
		"name":   graphql.String(repo),
		"number": graphql.Int(number),
	}
	if err := c.call(ctx, func() error { return c.gql.Query(ctx, &q, vars) }); err != nil {
		return projectFields{}, fmt.Errorf("ghclient: query project fields: %w", err)
	}
	for _, item := range q.Repository.Issue.ProjectItems.Nodes {
		if item.Project.Number != projectNumber {
			continue
		}
		return projectFields{
			Status:    issuedata.ProjectStatus(item.Status.SingleSelect.Name),
			Iteration: int(item.Iteration.NumberValue.Number),
			Failures:  int(item.Failures.NumberValue.Number),
		}, nil
	}
	return projectFields{}, nil
}

// UpdateProjectFields sets single-select/text fields (keyed by field
// name) on the issue's project item, denormalizing "In progress" back
// to "Ready" for the Status field (spec.md §9 open question 1).
func (c *Client) UpdateProjectFields(ctx context.Context, number int, fields map[string]string) error {
	owner, repo := c.cfg.defaultOwnerRepo()
	itemID, err := c.projectItemID(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("ghclient: resolve project item for #%d: %w", number, err)
	}
	if itemID == "" {
		return nil // issue not on the board; nothing to update
	}

	projectID, err := c.projectNodeID(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("ghclient: resolve project node id: %w", err)
	}

	for name, value := range fields {
		var fieldID string
		var fieldValue map[string]interface{}

		if numericProjectFields[name] {
			n, convErr := strconv.Atoi(value)
			if convErr != nil {
				return fmt.Errorf("ghclient: field %q expects a number, got %q: %w", name, value, convErr)
			}
			fieldID, err = c.numberFieldID(ctx, owner, repo, name)
			if err != nil {
				return fmt.Errorf("ghclient: resolve number field %q: %w", name, err)
			}
			fieldValue = map[string]interface{}{"number": graphql.Float(n)}
		} else {
			if name == "Status" {
				value = string(issuedata.DenormalizeStatus(issuedata.ProjectStatus(value)))
			}
			var optionID string
			optionID, fieldID, err = c.singleSelectOptionID(ctx, owner, repo, name, value)
			if err != nil {
				return fmt.Errorf("ghclient: resolve option %q=%q: %w", name, value, err)
			}
			fieldValue = map[string]interface{}{"singleSelectOptionId": graphql.String(optionID)}
		}

		err = c.call(ctx, func() error {
			var m struct {
				UpdateProjectV2ItemFieldValue struct {
					ClientMutationID string
				} `graphql:"updateProjectV2ItemFieldValue(input: $input)"`
			}
			input := map[string]interface{}{
				"projectId": graphql.ID(projectID),
				"itemId":    graphql.ID(itemID),
				"fieldId":   graphql.ID(fieldID),
				"value":     fieldValue,
			}
			return c.gql.Mutate(ctx, &m, input, nil)
		})
		if err != nil {
			return fmt.Errorf("ghclient: update field %q on #%d: %w", name, number, err)
		}
	}
	return nil
}

// numberFieldID resolves the GraphQL field ID of a plain Number project
// field (as opposed to singleSelectOptionID's single-select fields).
func (c *Client) numberFieldID(ctx context.Context, owner, repo, fieldName string) (string, error) {
	var q struct {
		Repository struct {
			ProjectV2 struct {
				Fields struct {
					Nodes []struct {
						Field struct {
							ID   string
							Name string
						} `graphql:"... on ProjectV2Field"`
					}
				} `graphql:"fields(first: 50)"`
			} `graphql:"projectV2(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  graphql.String(owner),
		"name":   graphql.String(repo),
		"number": graphql.Int(c.cfg.ProjectNumber),
	}
	if err := c.call(ctx, func() error { return c.gql.Query(ctx, &q, vars) }); err != nil {
		return "", err
	}
	for _, f := range q.Repository.ProjectV2.Fields.Nodes {
		if f.Field.Name == fieldName {
			return f.Field.ID, nil
		}
	}
	return "", fmt.Errorf("number field %q not found", fieldName)
}

// projectItemID and singleSelectOptionID are deliberately thin: they
// resolve the IDs a single-select field update needs. A production
// deployment would cache the project/field/option schema per project
// board instead of re-querying it on every mutation.
func (c *Client) projectItemID(ctx context.Context, owner, repo string, number int) (string, error) {
	var q struct {
		Repository struct {
			Issue struct {
				ProjectItems struct {
					Nodes []struct {
						ID      string
						Project struct{ Number int }
					}
				} `graphql:"projectItems(first: 10)"`
			} `graphql:"issue(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  graphql.String(owner),
		"name":   graphql.String(repo),
		"number": graphql.Int(number),
	}
	if err := c.call(ctx, func() error { return c.gql.Query(ctx, &q, vars) }); err != nil {
		return "", err
	}
	for _, item := range q.Repository.Issue.ProjectItems.Nodes {
		if item.Project.Number == c.cfg.ProjectNumber {
			return item.ID, nil
		}
	}
	return "", nil
}

func (c *Client) projectNodeID(ctx context.Context, owner, repo string) (string, error) {
	var q struct {
		Repository struct {
			ProjectV2 struct {
				ID string
			} `graphql:"projectV2(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  graphql.String(owner),
		"name":   graphql.String(repo),
		"number": graphql.Int(c.cfg.ProjectNumber),
	}
	if err := c.call(ctx, func() error { return c.gql.Query(ctx, &q, vars) }); err != nil {
		return "", err
	}
	return q.Repository.ProjectV2.ID, nil
}

func (c *Client) singleSelectOptionID(ctx context.Context, owner, repo, fieldName, optionName string) (optionID, fieldID string, err error) {
	var q struct {
		Repository struct {
			ProjectV2 struct {
				Fields struct {
					Nodes []struct {
						SingleSelect struct {
							ID      string
							Name    string
							Options []struct {
								ID   string
								Name string
							}
						} `graphql:"... on ProjectV2SingleSelectField"`
					}
				} `graphql:"fields(first: 50)"`
			} `graphql:"projectV2(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  graphql.String(owner),
		"name":   graphql.String(repo),
		"number": graphql.Int(c.cfg.ProjectNumber),
	}
	if err := c.call(ctx, func() error { return c.gql.Query(ctx, &q, vars) }); err != nil {
		return "", "", err
	}
	for _, f := range q.Repository.ProjectV2.Fields.Nodes {
		if f.SingleSelect.Name != fieldName {
			continue
		}
		fieldID = f.SingleSelect.ID
		for _, opt := range f.SingleSelect.Options {
			if opt.Name == optionName {
				return opt.ID, fieldID, nil
			}
		}
	}
	return "", fieldID, fmt.Errorf("option %q not found on field %q", optionName, fieldName)
}
