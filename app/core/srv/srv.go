package srv

type Srv struct {
	locker *TableLocker
	fanout *Fanout
}

type ApplyFunc func(s *Srv)

func SetupSrvs(opts ...ApplyFunc) *Srv {
	a := &Srv{
		locker: NewTableLocker(), // 同一张表的写操作串行执行
	}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (s *Srv) Locker() *TableLocker {
	return s.locker
}

func (s *Srv) Fanout() *Fanout {
	return s.fanout
}
