package authz

import "github.com/agrokasa/advert_market/internal/models"

type Permission string

const (
	PostAdverts       Permission = "post_adverts"
	GetAdverts        Permission = "get_adverts"
	GetAdvertByID     Permission = "get_advert_by_id"
	GetSimilarAdverts Permission = "get_similar_adverts"
	GetMyAdverts      Permission = "get_my_adverts"
	ReplaceAdvert     Permission = "replace_advert"
	DeleteAdvert      Permission = "delete_advert"
	UseAI             Permission = "use_ai"

	// Wildcard grants every permission.
	Wildcard Permission = "*"
)

var rolePermissions = map[models.Role][]Permission{
	models.RoleAdmin: {Wildcard},
	models.RoleVendor: {
		PostAdverts,
		GetAdverts,
		GetAdvertByID,
		GetSimilarAdverts,
		GetMyAdverts,
		ReplaceAdvert,
		DeleteAdvert,
		UseAI,
	},
	models.RoleUser: {
		GetAdverts,
		GetAdvertByID,
		GetSimilarAdverts,
	},
}

// Allowed reports whether role holds p. Unknown roles hold nothing.
func Allowed(role models.Role, p Permission) bool {
	for _, granted := range rolePermissions[role] {
		if granted == Wildcard || granted == p {
			return true
		}
	}
	return false
}

// BypassesOwnership reports whether role may act on adverts it does not own.
func BypassesOwnership(role models.Role) bool {
	return role == models.RoleAdmin
}
