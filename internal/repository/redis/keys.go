package redis

import "fmt"

const ns = "domego:v1"

func KeyShowDetail(showID int64) string {
	return fmt.Sprintf("%s:show:%d:detail", ns, showID)
}

func KeyShowList(filterHash string) string {
	return fmt.Sprintf("%s:shows:list:%s", ns, filterHash)
}

func KeySeasonDetail(seasonID int64) string {
	return fmt.Sprintf("%s:season:%d:detail", ns, seasonID)
}

func KeyIdemReservation(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:reservations:%d:%s", ns, userID, idemKey)
}

func ChannelSeasonsChanged() string {
	return ns + ":seasons:changed"
}
