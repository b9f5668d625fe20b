// Package pagination provides cursor based pagination for WorkOS list
// endpoints.
//
// List endpoints return a page of data plus list metadata holding opaque
// before/after cursors. A Page keeps the request that produced it, so callers
// can either work with the first page directly or walk every page:
//
//	page, err := orgs.ListOrganizations(ctx, organizations.ListOrganizationsOpts{})
//	if err != nil {
//		return err
//	}
//	for org, err := range page.All(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(org.Name)
//	}
//
// Auto pagination:
//   - Starts again from the original cursor each time it is ranged over
//   - Follows after, or before when the original request paginated backwards
//   - Stops on an empty cursor or an empty page
//   - Waits PageDelay between fetches to stay within API rate limits
package pagination
