package utils

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"
)

var (
	shanghaiOnce sync.Once
	shanghai     *time.Location
)

// ShanghaiLocation returns Asia/Shanghai, the time zone the source page
// reports in. It falls back to a fixed UTC+8 zone if the zone database is
// unavailable.
func ShanghaiLocation() *time.Location {
	shanghaiOnce.Do(func() {
		loc, err := time.LoadLocation("Asia/Shanghai")
		if err != nil {
			loc = time.FixedZone("CST", 8*60*60)
		}
		shanghai = loc
	})
	return shanghai
}

// FormatMonthDayTime formats t as "1月2日15:04" in Shanghai time.
func FormatMonthDayTime(t time.Time) string {
	t = t.In(ShanghaiLocation())
	return fmt.Sprintf("%d月%d日%s", int(t.Month()), t.Day(), t.Format("15:04"))
}

// FormatMonthDay formats t as "1月2日" in Shanghai time.
func FormatMonthDay(t time.Time) string {
	t = t.In(ShanghaiLocation())
	return fmt.Sprintf("%d月%d日", int(t.Month()), t.Day())
}
