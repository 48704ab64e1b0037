package instagram

import (
	"github.com/drissea/reelsync/internal/models"
)

// ExtractCollaborators gathers the accounts credited on a reel. The source
// structures are scanned in priority order (invited coauthors, accepted
// coauthors, sponsors, tagged users) and the first entry seen for a user ID
// wins. Entries without a usable ID are skipped.
func ExtractCollaborators(m *RawMedia) models.CollaboratorList {
	collaborators := models.CollaboratorList{}
	seen := make(map[string]bool)

	add := func(user *RawUser, typ models.CollaboratorType) {
		if user == nil {
			return
		}
		id := user.UserID()
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		collaborators = append(collaborators, models.Collaborator{
			UserID:        id,
			Username:      user.Username,
			FullName:      user.FullName,
			ProfilePicURL: user.ProfilePicURL,
			IsVerified:    user.IsVerified,
			Type:          typ,
		})
	}

	for i := range m.InvitedCoauthorProducers {
		add(&m.InvitedCoauthorProducers[i], models.CollabInvitedCoauthor)
	}
	for i := range m.CoauthorProducers {
		add(&m.CoauthorProducers[i], models.CollabCoauthor)
	}
	for _, tag := range m.SponsorTags {
		add(tag.Sponsor, models.CollabSponsor)
	}
	if m.Usertags != nil {
		for _, tag := range m.Usertags.In {
			add(tag.User, models.CollabTaggedUser)
		}
	}

	return collaborators
}
