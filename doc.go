/*
Package binlog decodes the MySQL binary replication log into typed
change events.

The package is the read side only: it turns a raw event stream (from a
file or from whatever transport delivers frames) into structured
events, tracks the stream's GTID state and carries table-map metadata
between a TableMap event and the row events that follow it.

to decode a binlog file:

	d, err := binlog.OpenFile("binlog.000001", binlog.Config{StatisticsEnabled: true})
	if err != nil {
		return err
	}
	for {
		e, err := d.NextEvent()
		if err != nil {
			return err
		}
		if e == nil {
			break // end of frame
		}
		if e.Err != nil {
			log.Printf("skipping broken event: %v", e.Err)
			continue
		}
		re, ok := e.Data.(*binlog.RowsEvent)
		if !ok {
			continue
		}
		fmt.Printf("table: %s.%s\n", re.SchemaName(), re.TableName())
		for _, row := range re.Rows {
			for i, v := range row.Cells {
				fmt.Printf("col=%d value=%v\n", i, v)
			}
		}
	}

to decode frames arriving from a transport, feed them directly:

	d := binlog.NewDecoder(binlog.Config{})
	d.Feed(frame)
	for {
		e, err := d.NextEvent()
		...
	}

Updates pair both row images and can report exactly which columns
changed:

	for _, u := range re.Updates {
		diff := u.Difference()
		fmt.Printf("%d of %d columns changed (%.0f%%)\n",
			diff.ChangedCount, diff.TotalColumns, diff.ChangePercentage())
	}
*/
package binlog
