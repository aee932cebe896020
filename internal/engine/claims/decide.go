package claims

// Decide turns a Match into an Outcome for the email that produced it. The
// first matching rule wins:
//
//  1. domains match: admin-owned orgs are open to claim; otherwise only the
//     recorded owner passes, and an unresolvable owner blocks.
//  2. the org's contact address is on a generic provider and the requester
//     uses the same provider: block, the address cannot be verified.
//  3. an org exists, the domains differ and either side is a generic
//     provider: block until identity is verified by hand. A missing email
//     counts as differing.
//  4. otherwise defer to whether the slug is free.
func Decide(m Match, email string, isGeneric func(string) bool, contactURL string) Outcome {
	if m.DomainsMatch {
		if m.OrgOwnerIsAdmin {
			return Allowed()
		}
		if m.OwnerEmail == "" {
			return Blocked(MsgOwnerUnresolved, contactURL)
		}
		if m.OwnerEmail == email {
			return AllowedAsOwner()
		}
		return Rejected(MsgOrgHasOwner)
	}

	if m.IsNew {
		return Unknown(true)
	}

	orgGeneric := isGeneric(m.OrgEmailDomain)
	if orgGeneric && m.EmailDomain == m.OrgEmailDomain {
		return Blocked(MsgVerifyEmail, contactURL)
	}
	if (orgGeneric || isGeneric(m.EmailDomain)) && m.EmailDomain != m.OrgEmailDomain {
		return Blocked(MsgVerifyIdentity, contactURL)
	}

	return Unknown(false)
}
