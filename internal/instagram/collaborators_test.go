package instagram

import (
	"testing"

	"github.com/drissea/reelsync/internal/models"
)

func TestExtractCollaborators(t *testing.T) {
	alice := RawUser{PK: "100", Username: "alice", FullName: "Alice A", IsVerified: true}
	bob := RawUser{PK: "200", Username: "bob"}
	carol := RawUser{PK: "300", Username: "carol"}

	tests := []struct {
		name      string
		media     RawMedia
		wantIDs   []string
		wantTypes []models.CollaboratorType
	}{
		{
			name:      "empty media yields empty list",
			media:     RawMedia{},
			wantIDs:   []string{},
			wantTypes: []models.CollaboratorType{},
		},
		{
			name: "invited coauthors",
			media: RawMedia{
				InvitedCoauthorProducers: []RawUser{alice, bob},
			},
			wantIDs:   []string{"100", "200"},
			wantTypes: []models.CollaboratorType{models.CollabInvitedCoauthor, models.CollabInvitedCoauthor},
		},
		{
			name: "accepted coauthor deduped against invited",
			media: RawMedia{
				InvitedCoauthorProducers: []RawUser{alice},
				CoauthorProducers:        []RawUser{alice, bob},
			},
			wantIDs:   []string{"100", "200"},
			wantTypes: []models.CollaboratorType{models.CollabInvitedCoauthor, models.CollabCoauthor},
		},
		{
			name: "sponsors and tagged users",
			media: RawMedia{
				SponsorTags: []sponsorTag{{Sponsor: &bob}},
				Usertags:    &usertags{In: []usertagItem{{User: &carol}}},
			},
			wantIDs:   []string{"200", "300"},
			wantTypes: []models.CollaboratorType{models.CollabSponsor, models.CollabTaggedUser},
		},
		{
			name: "user in every source keeps highest precedence type",
			media: RawMedia{
				InvitedCoauthorProducers: []RawUser{alice},
				CoauthorProducers:        []RawUser{alice},
				SponsorTags:              []sponsorTag{{Sponsor: &alice}},
				Usertags:                 &usertags{In: []usertagItem{{User: &alice}}},
			},
			wantIDs:   []string{"100"},
			wantTypes: []models.CollaboratorType{models.CollabInvitedCoauthor},
		},
		{
			name: "entries without a user id are skipped",
			media: RawMedia{
				SponsorTags: []sponsorTag{{Sponsor: nil}, {Sponsor: &RawUser{Username: "ghost"}}},
				Usertags:    &usertags{In: []usertagItem{{User: &carol}}},
			},
			wantIDs:   []string{"300"},
			wantTypes: []models.CollaboratorType{models.CollabTaggedUser},
		},
		{
			name: "id field used when pk is absent",
			media: RawMedia{
				CoauthorProducers: []RawUser{{ID: "400", Username: "dana"}},
			},
			wantIDs:   []string{"400"},
			wantTypes: []models.CollaboratorType{models.CollabCoauthor},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCollaborators(&tt.media)
			if got == nil {
				t.Fatal("ExtractCollaborators returned nil, want empty list")
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d collaborators, want %d", len(got), len(tt.wantIDs))
			}
			for i := range got {
				if got[i].UserID != tt.wantIDs[i] {
					t.Errorf("collaborator %d UserID = %q, want %q", i, got[i].UserID, tt.wantIDs[i])
				}
				if got[i].Type != tt.wantTypes[i] {
					t.Errorf("collaborator %d Type = %q, want %q", i, got[i].Type, tt.wantTypes[i])
				}
			}
		})
	}
}

func TestCollaboratorLabel(t *testing.T) {
	tests := []struct {
		name   string
		collab models.Collaborator
		want   string
	}{
		{"both sides joined", models.Collaborator{Username: "alice", FullName: "Alice A"}, "alice Alice A"},
		{"username only", models.Collaborator{Username: "alice"}, "alice"},
		{"full name only", models.Collaborator{FullName: "Alice A"}, "Alice A"},
		{"both empty", models.Collaborator{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.collab.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}
