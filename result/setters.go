package result

import "time"

func SetStatus(status Status) RunSetter {
	return func(r *Run) error {
		if !status.IsValid() {
			return ErrInvalidRunStatus
		}
		r.Status = status
		return nil
	}
}

func SetEndTime(t time.Time) RunSetter {
	return func(r *Run) error {
		r.EndTime = &t
		return nil
	}
}

func SetCounts(success, failInvalid, failUnknown, errored int) RunSetter {
	return func(r *Run) error {
		r.SuccessCount = success
		r.FailInvalidCount = failInvalid
		r.FailUnknownCount = failUnknown
		r.ErrorCount = errored
		return nil
	}
}
