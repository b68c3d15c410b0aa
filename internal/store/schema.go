package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names shared by the repositories.
const (
	tableProfiles     = "profiles"
	tableTrees        = "trees"
	tableSentences    = "sentences"
	tableTreeProfiles = "tree_profiles"
	tableMeta         = "meta"
	tableTrialEvents  = "trial_events"
)

var (
	profilesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "name", Type: field.TypeString, Unique: true},
		{Name: "mothertongue", Type: field.TypeString, Default: ""},
		{Name: "lifecycle_state", Type: field.TypeString, Default: "registering"},
		{Name: "suggestion_credit", Type: field.TypeInt, Default: 0},
		{Name: "trained_reformulations_count", Type: field.TypeInt, Default: 0},
		{Name: "reformulations_count", Type: field.TypeInt, Default: 0},
		{Name: "reading_span_done", Type: field.TypeBool, Default: false},
		{Name: "questionnaire_done", Type: field.TypeBool, Default: false},
		{Name: "created_at", Type: field.TypeInt64},
	}
	profilesTable = &schema.Table{
		Name:       tableProfiles,
		Columns:    profilesColumns,
		PrimaryKey: []*schema.Column{profilesColumns[0]},
	}

	treesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "root_id", Type: field.TypeInt, Nullable: true},
		{Name: "root_language", Type: field.TypeString},
		{Name: "root_bucket", Type: field.TypeString},
		{Name: "other_mothertongue", Type: field.TypeBool, Default: false},
		{Name: "branches_count", Type: field.TypeInt, Default: 0},
		{Name: "shortest_branch_depth", Type: field.TypeInt, Default: 0},
		{Name: "created_at", Type: field.TypeInt64},
	}
	treesTable = &schema.Table{
		Name:       tableTrees,
		Columns:    treesColumns,
		PrimaryKey: []*schema.Column{treesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "tree_root_language_root_bucket", Columns: []*schema.Column{treesColumns[2], treesColumns[3]}},
		},
	}

	sentencesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "tree_id", Type: field.TypeInt},
		{Name: "parent_id", Type: field.TypeInt, Nullable: true},
		{Name: "branch_id", Type: field.TypeInt, Nullable: true},
		{Name: "profile_id", Type: field.TypeInt, Nullable: true},
		{Name: "text", Type: field.TypeString, Size: 5000},
		{Name: "language", Type: field.TypeString},
		{Name: "bucket", Type: field.TypeString},
		{Name: "depth", Type: field.TypeInt, Default: 0},
		{Name: "created_at", Type: field.TypeInt64},
	}
	sentencesTable = &schema.Table{
		Name:       tableSentences,
		Columns:    sentencesColumns,
		PrimaryKey: []*schema.Column{sentencesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "sentences_trees_sentences",
				Columns:    []*schema.Column{sentencesColumns[1]},
				RefColumns: []*schema.Column{treesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "sentence_tree_id", Columns: []*schema.Column{sentencesColumns[1]}},
			{Name: "sentence_parent_id", Columns: []*schema.Column{sentencesColumns[2]}},
			{Name: "sentence_profile_id_bucket", Columns: []*schema.Column{sentencesColumns[4], sentencesColumns[7]}},
		},
	}

	treeProfilesColumns = []*schema.Column{
		{Name: "tree_id", Type: field.TypeInt},
		{Name: "profile_id", Type: field.TypeInt},
	}
	treeProfilesTable = &schema.Table{
		Name:       tableTreeProfiles,
		Columns:    treeProfilesColumns,
		PrimaryKey: []*schema.Column{treeProfilesColumns[0], treeProfilesColumns[1]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "tree_profiles_tree_id",
				Columns:    []*schema.Column{treeProfilesColumns[0]},
				RefColumns: []*schema.Column{treesColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "tree_profiles_profile_id",
				Columns:    []*schema.Column{treeProfilesColumns[1]},
				RefColumns: []*schema.Column{profilesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	metaColumns = []*schema.Column{
		{Name: "key", Type: field.TypeString},
		{Name: "value", Type: field.TypeString},
	}
	metaTable = &schema.Table{
		Name:       tableMeta,
		Columns:    metaColumns,
		PrimaryKey: []*schema.Column{metaColumns[0]},
	}

	trialEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeInt64},
		{Name: "trial_id", Type: field.TypeString},
		{Name: "profile_id", Type: field.TypeInt, Nullable: true},
		{Name: "event", Type: field.TypeString},
		{Name: "from_state", Type: field.TypeString},
		{Name: "to_state", Type: field.TypeString},
		{Name: "sentence_id", Type: field.TypeInt, Nullable: true},
		{Name: "infos", Type: field.TypeString, Default: ""},
	}
	trialEventsTable = &schema.Table{
		Name:       tableTrialEvents,
		Columns:    trialEventsColumns,
		PrimaryKey: []*schema.Column{trialEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "trial_event_trial_id", Columns: []*schema.Column{trialEventsColumns[3]}},
		},
	}

	tables = []*schema.Table{
		profilesTable,
		treesTable,
		sentencesTable,
		treeProfilesTable,
		metaTable,
		trialEventsTable,
	}
)

func init() {
	sentencesTable.ForeignKeys[0].RefTable = treesTable
	treeProfilesTable.ForeignKeys[0].RefTable = treesTable
	treeProfilesTable.ForeignKeys[1].RefTable = profilesTable
}

// migrate creates missing tables, columns and indexes.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("new migrate: %w", err)
	}
	return m.Create(ctx, tables...)
}
