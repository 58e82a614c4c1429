package inventory

import (
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
)

// maxOwnerDepth bounds the ownership walk so a malformed reference cycle
// cannot loop forever.
const maxOwnerDepth = 10

// ownerRef is the resolved top-level controller for one pod.
type ownerRef struct {
	kind      string
	name      string
	createdAt int64
}

// resolver walks pod ownership chains, Pod → ReplicaSet → Deployment and
// Job → CronJob. Owners outside the indexed chain (custom operators)
// terminate the walk at the last known hop and keep their declared kind.
type resolver struct {
	replicaSets map[string]*appsv1.ReplicaSet
	jobs        map[string]*batchv1.Job

	// created indexes controller creation times by namespace/kind/name,
	// unix milliseconds. Zero means unknown.
	created map[string]int64
}

func newResolver(l *listing) *resolver {
	r := &resolver{
		replicaSets: make(map[string]*appsv1.ReplicaSet, len(l.replicaSets)),
		jobs:        make(map[string]*batchv1.Job, len(l.jobs)),
		created:     make(map[string]int64),
	}

	for i := range l.replicaSets {
		rs := &l.replicaSets[i]
		r.replicaSets[rs.Namespace+"/"+rs.Name] = rs
		r.created[createdKey(rs.Namespace, "ReplicaSet", rs.Name)] = rs.CreationTimestamp.UnixMilli()
	}
	for i := range l.jobs {
		job := &l.jobs[i]
		r.jobs[job.Namespace+"/"+job.Name] = job
		r.created[createdKey(job.Namespace, "Job", job.Name)] = job.CreationTimestamp.UnixMilli()
	}
	for i := range l.deployments {
		d := &l.deployments[i]
		r.created[createdKey(d.Namespace, "Deployment", d.Name)] = d.CreationTimestamp.UnixMilli()
	}
	for i := range l.statefulSets {
		sts := &l.statefulSets[i]
		r.created[createdKey(sts.Namespace, "StatefulSet", sts.Name)] = sts.CreationTimestamp.UnixMilli()
	}
	for i := range l.daemonSets {
		ds := &l.daemonSets[i]
		r.created[createdKey(ds.Namespace, "DaemonSet", ds.Name)] = ds.CreationTimestamp.UnixMilli()
	}
	for i := range l.cronJobs {
		cj := &l.cronJobs[i]
		r.created[createdKey(cj.Namespace, "CronJob", cj.Name)] = cj.CreationTimestamp.UnixMilli()
	}
	return r
}

func createdKey(namespace, kind, name string) string {
	return namespace + "/" + kind + "/" + name
}

// resolve returns the top-level controller for a pod. Bare pods and
// static pods (owner kind "Node") are audited standalone under their own
// name.
func (r *resolver) resolve(pod *corev1.Pod) ownerRef {
	standalone := ownerRef{
		kind:      "Pod",
		name:      pod.Name,
		createdAt: pod.CreationTimestamp.UnixMilli(),
	}
	if len(pod.OwnerReferences) == 0 {
		return standalone
	}

	owner := pod.OwnerReferences[0]
	if owner.Kind == "Node" {
		return standalone
	}

	kind := owner.Kind
	name := owner.Name
	ns := pod.Namespace

	for depth := 0; depth < maxOwnerDepth; depth++ {
		resolved := false

		switch kind {
		case "ReplicaSet":
			rs, ok := r.replicaSets[ns+"/"+name]
			if !ok || len(rs.OwnerReferences) == 0 {
				break
			}
			kind = rs.OwnerReferences[0].Kind
			name = rs.OwnerReferences[0].Name
			resolved = true

		case "Job":
			job, ok := r.jobs[ns+"/"+name]
			if !ok || len(job.OwnerReferences) == 0 {
				break
			}
			kind = job.OwnerReferences[0].Kind
			name = job.OwnerReferences[0].Name
			resolved = true
		}

		if !resolved {
			break
		}
	}

	return ownerRef{
		kind:      kind,
		name:      name,
		createdAt: r.created[createdKey(ns, kind, name)],
	}
}
